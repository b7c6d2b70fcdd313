// Package model содержит доменные сущности сервиса заказов.
package model

import "time"

// OrderStatus описывает статус жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatuses содержит закрытое множество допустимых статусов заказа.
var ValidOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusConfirmed:  {},
	OrderStatusInProgress: {},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// OrderType описывает тип заказа.
type OrderType string

const (
	OrderTypeDelivery  OrderType = "delivery"
	OrderTypePickup    OrderType = "pickup"
	OrderTypeExpress   OrderType = "express"
	OrderTypeScheduled OrderType = "scheduled"
)

// ValidOrderTypes содержит закрытое множество допустимых типов заказа.
var ValidOrderTypes = map[OrderType]struct{}{
	OrderTypeDelivery:  {},
	OrderTypePickup:    {},
	OrderTypeExpress:   {},
	OrderTypeScheduled: {},
}

// Order описывает сохранённый заказ пользователя.
type Order struct {
	ID             int64
	UserID         string
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	Amount         float64
	OrderType      OrderType
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder содержит проверенные данные для создания заказа.
type NewOrder struct {
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	Amount         float64
	OrderType      OrderType
}

// ListQuery содержит проверенные параметры выборки списка заказов.
type ListQuery struct {
	Status    string
	OrderType string
	Limit     int
	Offset    int
}
