package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ChiaYuChang/sharpai/internal/cfggen"
)

func main() {
	// 設置 Viper 從環境變數讀取
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 處理嵌套結構的環境變數

	envFile := pflag.String("env-file", ".env", "Path to the .env file used as the config source")
	outputDir := pflag.String("output", "configs", "Directory to write the generated config to")
	name := pflag.String("name", "sharpai", "Name of the generated config file (without extension)")
	format := pflag.String("format", "json", "Output format (json, yaml or toml)")
	pflag.Parse()

	// 讀取 .env 檔案到全局 viper 實例，作為 cfggen 的 sourceViper
	viper.SetConfigFile(*envFile)
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Error reading %s, using environment variables only: %v\n", *envFile, err)
	}

	// 確保 configs 目錄存在
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Printf("Error creating configs directory: %v\n", err)
		os.Exit(1)
	}

	cfgGen := cfggen.NewCfgGen(viper.GetViper())
	cfgGen.AddModeConfig()
	cfgGen.AddSDKConfig()
	cfgGen.AddLoggerConfig()
	cfgGen.AddOtelConfig()

	outputFile := filepath.Join(*outputDir, fmt.Sprintf("%s.%s", *name, *format))
	file, err := os.Create(outputFile)
	if err != nil {
		fmt.Printf("Error creating output file %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	defer file.Close()

	if err := cfgGen.WriteTo(file, *format); err != nil {
		fmt.Printf("Error writing config to %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Config successfully generated to %s\n", outputFile)
}
