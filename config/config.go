// Package config loads server configuration from the environment, with
// an optional .env file for development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Printer PrinterConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type CatalogConfig struct {
	DatabasePath  string
	BarcodePrefix string
}

type PrinterConfig struct {
	// AllowSimulated substitutes a logged no-op printer when no
	// physical device is found. Meant for development machines.
	AllowSimulated bool
	// MonitorIntervalSeconds is how often transport enumeration is
	// polled for attach/detach events. 0 disables the monitor.
	MonitorIntervalSeconds int
}

func Load() *Config {
	_ = godotenv.Load()

	monitorInterval, _ := strconv.Atoi(getEnv("PRINTER_MONITOR_INTERVAL_SECONDS", "5"))

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8420"),
			Env:  getEnv("ENV", "development"),
		},
		Catalog: CatalogConfig{
			DatabasePath:  getEnv("DATABASE_PATH", "products.db"),
			BarcodePrefix: getEnv("BARCODE_PREFIX", "789846581"),
		},
		Printer: PrinterConfig{
			AllowSimulated:         getEnv("PRINTER_ALLOW_SIMULATED", "true") == "true",
			MonitorIntervalSeconds: monitorInterval,
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
