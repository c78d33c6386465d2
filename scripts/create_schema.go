package main

import (
	"fmt"
	"os"
	"path/filepath"

	"kidneyguard-data/internal/config"
	"kidneyguard-data/internal/database"

	_ "github.com/lib/pq"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 读取 SQL 文件
	sqlFile := filepath.Join("db", "schema.sql")
	if len(os.Args) > 1 {
		sqlFile = os.Args[1]
	}
	sqlBytes, err := os.ReadFile(sqlFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read SQL file: %v\n", err)
		os.Exit(1)
	}

	// 执行 SQL
	_, err = db.Exec(string(sqlBytes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ kidneyguard-data schema created successfully!")
}
