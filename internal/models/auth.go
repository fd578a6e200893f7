package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Operator is a dashboard account, local (bcrypt) or directory-backed.
type Operator struct {
	bun.BaseModel `bun:"table:app.operators,alias:op"`
	ID            uuid.UUID  `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Roles         []string   `json:"roles" bun:",array"`
	Provider      string     `json:"provider"`
	Name          string     `json:"name"`
	CreatedAt     time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

// OperatorInfo is the public view of an operator returned at login.
type OperatorInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Roles    []string `json:"roles"`
}

type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"access_expires_at"`
	Operator    *OperatorInfo `json:"operator"`
}
