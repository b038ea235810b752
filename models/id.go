package models

import "github.com/google/uuid"

// EnsureID 在主鍵尚未設定時產生 UUIDv7 (時間有序)
func EnsureID(id *uuid.UUID) {
	if *id != uuid.Nil {
		return
	}
	v7, err := uuid.NewV7()
	if err != nil {
		v7 = uuid.New()
	}
	*id = v7
}
