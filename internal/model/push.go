package model

import "time"

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
