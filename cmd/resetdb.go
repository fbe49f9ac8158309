package cmd

import (
	"database/sql"
	"fmt"
	"log"

	"audiopub/config"
	"audiopub/db"

	"github.com/spf13/cobra"
)

var resetdbCmd = &cobra.Command{
	Use:   "resetdb",
	Short: "Drop and recreate the database",
	Long:  `Drop the configured database, recreate it, and run the schema setup. All data is lost.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Resetting database %s on %s:%s\n", cfg.DBName, cfg.DBHost, cfg.DBPort)

		// Connect without selecting a database so it can be dropped.
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort)
		adminDB, err := sql.Open("mysql", dsn)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer adminDB.Close()

		if _, err := adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", cfg.DBName)); err != nil {
			log.Fatalf("Failed to drop database: %v", err)
		}
		if _, err := adminDB.Exec(fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4", cfg.DBName)); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		if err := db.InitDB(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Failed to connect GORM: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.MigrateGormModels(); err != nil {
			log.Fatalf("Failed to migrate models: %v", err)
		}

		fmt.Println("Database reset complete.")
	},
}

func init() {
	rootCmd.AddCommand(resetdbCmd)
}
