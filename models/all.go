package models

// All 列出所有需要建立資料表的模型，依照外鍵相依順序排列
func All() []any {
	return []any{
		&User{},
		&SsoProvider{},
		&UserIdentity{},
		&Category{},
		&Listing{},
		&Bid{},
		&Comment{},
		&WatchlistEntry{},
		&Notification{},
		&Image{},
	}
}
