package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"commerce/models"
)

// Migrate 建立 schema 並依模型更新資料表
// 正式環境應使用 tools/atlas-loader 產生的 migration，這裡用於開發環境
func (s *Store) Migrate(ctx context.Context, schemaName string) error {
	const op = "Store.Migrate"
	db := s.db.WithContext(ctx)
	if schemaName != "" {
		if result := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schemaName)); result.Error != nil {
			return fmt.Errorf("[%s] Fail to create schema %s, err=%w", op, schemaName, result.Error)
		}
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("[%s] Fail to migrate models, err=%w", op, err)
	}
	s.logger.Info("database migrated", slog.Int("models", len(models.All())))
	return nil
}
