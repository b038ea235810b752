package models

import "errors"

// 儲存層共用的錯誤，postgres 與 memory 兩種實作都會回傳這些錯誤
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicated record")
)
