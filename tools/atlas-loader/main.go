//go:generate sh -c "mkdir -p ../../migrations && go run ./main.go > ../../migrations/schema.sql"

package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"

	"commerce/models"
)

// 輸出所有模型的 postgres schema，供 atlas migrate diff 使用
func main() {
	stmts, err := gormschema.New("postgres").Load(models.All()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}
	_, _ = io.WriteString(os.Stdout, stmts)
}
