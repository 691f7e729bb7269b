package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"agropulse/src/configs"
	"agropulse/src/core/utils"
	"agropulse/src/gateway"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	baseURL   string
	retries   int
	delay     time.Duration
	timeout   time.Duration
	runSample bool
)

var rootCmd = &cobra.Command{
	Use:   "connectivity",
	Short: "检查预测服务连通性",
	Long:  `探测预测服务的 /health 接口，可选发送一次作物推荐样例请求。`,
	Args:  cobra.NoArgs,
	RunE:  runConnectivity,
}

func init() {
	rootCmd.Flags().StringVar(&baseURL, "url", "", "预测服务地址，默认按配置解析")
	rootCmd.Flags().IntVar(&retries, "retries", 3, "健康检查重试次数")
	rootCmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "重试间隔")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "单次请求超时")
	rootCmd.Flags().BoolVar(&runSample, "predict", false, "健康检查通过后发送作物推荐样例")
}

func runConnectivity(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	fmt.Println("=== 预测服务连通性检查 ===")

	config, path, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if path != "" {
		fmt.Printf("使用配置文件: %s\n", path)
	}

	gwConfig := gateway.ConfigFrom(config.Gateway)
	if baseURL != "" {
		gwConfig.BaseURL = baseURL
	}
	gwConfig.Timeout = timeout

	logger := utils.NewWriterLogger(config.Log.LogLevel, os.Stderr)
	client := gateway.NewClient(gwConfig, logger)
	fmt.Printf("预测服务地址: %s\n", client.BaseURL())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if retries < 1 {
		retries = 1
	}
	var health gateway.Health
	for attempt := 1; attempt <= retries; attempt++ {
		start := time.Now()
		health = client.HealthCheck(ctx)
		fmt.Printf("第 %d 次检查: %v (耗时 %v)\n", attempt, health, time.Since(start).Round(time.Millisecond))
		if health.Healthy() {
			break
		}
		if attempt < retries {
			time.Sleep(delay)
		}
	}
	if !health.Healthy() {
		return fmt.Errorf("预测服务不可用: %v", health["error"])
	}
	fmt.Println("✅ 预测服务在线")

	if !runSample {
		return nil
	}

	result := client.PredictCrop(ctx, gateway.CropParams{
		Nitrogen: 90, Phosphorous: 42, Potassium: 43, PH: 6.5,
		Rainfall: 202.9, Temperature: 20.8, Humidity: 82,
	})
	fmt.Printf("作物推荐样例: %v\n", result.Envelope())
	if !result.Succeeded() {
		return fmt.Errorf("样例预测失败: %s", result.Message())
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
