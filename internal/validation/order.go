// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmeshcher/rideorders-system/internal/model"
)

// Коды ошибок валидации.
const (
	CodeMissingFields     = "MissingFields"
	CodeInvalidCoordinate = "InvalidCoordinate"
	CodeInvalidAmount     = "InvalidAmount"
	CodeInvalidOrderType  = "InvalidOrderType"
	CodeInvalidStatus     = "InvalidStatus"
	CodeInvalidID         = "InvalidId"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Error описывает ошибку валидации входных данных запроса.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CreateOrderRequest описывает тело запроса на создание заказа. Числовые поля
// декодируются в указатели, чтобы отличать отсутствующее значение от нуля.
type CreateOrderRequest struct {
	PickupAddress  string   `json:"pickupAddress"`
	DropoffAddress string   `json:"dropoffAddress"`
	LatPickup      *float64 `json:"latPickup"`
	LngPickup      *float64 `json:"lngPickup"`
	LatDropoff     *float64 `json:"latDropoff"`
	LngDropoff     *float64 `json:"lngDropoff"`
	Amount         *float64 `json:"amount"`
	OrderType      string   `json:"orderType"`
}

// ValidateCreateOrder проверяет тело запроса на создание заказа.
// Проверки выполняются в фиксированном порядке, первая неудача прерывает валидацию.
func ValidateCreateOrder(req CreateOrderRequest) (*model.NewOrder, error) {
	var missing []string
	if req.PickupAddress == "" {
		missing = append(missing, "pickupAddress")
	}
	if req.DropoffAddress == "" {
		missing = append(missing, "dropoffAddress")
	}
	if req.LatPickup == nil {
		missing = append(missing, "latPickup")
	}
	if req.LngPickup == nil {
		missing = append(missing, "lngPickup")
	}
	if req.LatDropoff == nil {
		missing = append(missing, "latDropoff")
	}
	if req.LngDropoff == nil {
		missing = append(missing, "lngDropoff")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if req.OrderType == "" {
		missing = append(missing, "orderType")
	}
	if len(missing) > 0 {
		return nil, newError(CodeMissingFields, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := checkLatitude("latPickup", *req.LatPickup); err != nil {
		return nil, err
	}
	if err := checkLongitude("lngPickup", *req.LngPickup); err != nil {
		return nil, err
	}
	if err := checkLatitude("latDropoff", *req.LatDropoff); err != nil {
		return nil, err
	}
	if err := checkLongitude("lngDropoff", *req.LngDropoff); err != nil {
		return nil, err
	}

	amount := *req.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, newError(CodeInvalidAmount, "Amount must be a positive number")
	}

	orderType := model.OrderType(strings.ToLower(req.OrderType))
	if _, ok := model.ValidOrderTypes[orderType]; !ok {
		return nil, newError(CodeInvalidOrderType,
			"Invalid order type, must be one of: delivery, pickup, express, scheduled")
	}

	return &model.NewOrder{
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		PickupLat:      *req.LatPickup,
		PickupLng:      *req.LngPickup,
		DropoffLat:     *req.LatDropoff,
		DropoffLng:     *req.LngDropoff,
		Amount:         amount,
		OrderType:      orderType,
	}, nil
}

func checkLatitude(field string, value float64) error {
	if math.IsNaN(value) || value < -90 || value > 90 {
		return newError(CodeInvalidCoordinate, "%s must be between -90 and 90", field)
	}
	return nil
}

func checkLongitude(field string, value float64) error {
	if math.IsNaN(value) || value < -180 || value > 180 {
		return newError(CodeInvalidCoordinate, "%s must be between -180 and 180", field)
	}
	return nil
}

// ParseListQuery разбирает параметры выборки списка заказов.
// Нечисловые limit и offset заменяются значениями по умолчанию.
func ParseListQuery(values url.Values) (*model.ListQuery, error) {
	q := &model.ListQuery{Limit: defaultLimit}

	if v := values.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if v := values.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Offset = n
		}
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if s := values.Get("status"); s != "" {
		if _, ok := model.ValidOrderStatuses[model.OrderStatus(s)]; !ok {
			return nil, newError(CodeInvalidStatus,
				"Invalid status, must be one of: pending, confirmed, in_progress, completed, cancelled")
		}
		q.Status = s
	}

	// Тип заказа как фильтр списка не сверяется с закрытым множеством,
	// только приводится к нижнему регистру.
	if t := values.Get("orderType"); t != "" {
		q.OrderType = strings.ToLower(t)
	}

	return q, nil
}

// ParseOrderID разбирает идентификатор заказа из параметра пути.
func ParseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newError(CodeInvalidID, "Invalid order id")
	}
	return id, nil
}
