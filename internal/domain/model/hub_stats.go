package model

import "time"

type HubStats struct {
	TotalUsers       int           `json:"total_users"`
	ReadyUsers       int           `json:"ready_users"`
	TotalConnections int           `json:"total_connections"`
	Uptime           time.Duration `json:"uptime"`
}
