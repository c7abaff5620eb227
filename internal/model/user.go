// Package model 包含了应用的数据模型定义。
package model

import "time"

// User 代表图数据库中的 User 节点。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt 哈希，不对外输出
	CreatedAt time.Time `json:"createdAt"`
}
