package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"agropulse/src/advisor"
	"agropulse/src/configs"
	"agropulse/src/configs/database"
	"agropulse/src/core/auth"
	"agropulse/src/core/image"
	"agropulse/src/core/utils"
	"agropulse/src/dashboard"
	"agropulse/src/gateway"
	"agropulse/src/predict"
	"agropulse/src/session"
	"agropulse/src/soil"
	"agropulse/src/status"
	"agropulse/src/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// Service 挂载到 /api 路由组的 HTTP 服务
type Service interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	// 加载配置，默认使用 .config.yaml
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(&config.Log)
	if err != nil {
		return nil, nil, err
	}
	if configPath == "" {
		configPath = "(默认配置)"
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))

	return config, logger, nil
}

// newSessionTokens 未配置密钥时生成进程内随机密钥，令牌在重启后失效
func newSessionTokens(config *configs.Config, logger *utils.Logger) (*auth.AuthToken, error) {
	secret := config.Server.Auth.Secret
	if secret == "" {
		if config.Server.Auth.Enabled {
			return nil, fmt.Errorf("启用鉴权时必须配置 server.auth.secret")
		}
		secret = uuid.NewString()
		logger.Warn("未配置会话密钥，使用随机密钥")
	}
	return auth.NewAuthToken(secret, auth.DefaultTTL)
}

func newAdvisor(config *configs.Config, logger *utils.Logger) advisor.Advisor {
	a, err := advisor.NewOpenAIAdvisor(config.Advisor)
	if err != nil {
		logger.Info("建议服务未启用", map[string]interface{}{"reason": err.Error()})
		return nil
	}
	return a
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, st *store.Store, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	if config.Log.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.SetTrustedProxies(nil)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.Server.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", session.ClientIDHeader)
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	tokens, err := newSessionTokens(config, logger)
	if err != nil {
		return nil, err
	}

	// 预测网关与状态监控
	client := gateway.NewClient(gateway.ConfigFrom(config.Gateway), logger)
	logger.Info(fmt.Sprintf("预测服务地址: %s", client.BaseURL()))

	monitor := status.NewMonitor(client, client.BaseURL(),
		configs.ParseDuration(config.Status.Interval, 30*time.Second), logger)
	g.Go(func() error {
		return monitor.Run(groupCtx)
	})

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")
	apiGroup.Use(session.Middleware(tokens, config.Server.Auth.Enabled, "/api"+session.Path, "/api/health"))

	services := map[string]Service{
		"session": session.NewDefaultSessionService(tokens, logger),
		"predict": predict.NewDefaultPredictService(client,
			image.NewUploadValidator(&config.Upload, logger), st, config.Upload.MaxFileSize, logger),
		"soil": soil.NewDefaultSoilService(soil.NewNominatimGeocoder(config.Geocode),
			soil.NewMockProvider(nil), st, logger),
		"dashboard": dashboard.NewDefaultDashboardService(dashboard.NewMockProvider(nil), st, logger),
		"status":    status.NewDefaultStatusService(monitor, config.Server.AllowedOrigins, logger),
		"advisor":   advisor.NewDefaultAdvisorService(newAdvisor(config, logger), logger),
	}
	for name, svc := range services {
		if err := svc.Start(groupCtx, router, apiGroup); err != nil {
			logger.Error(fmt.Sprintf("%s 服务启动失败", name), map[string]interface{}{"error": err.Error()})
			return nil, err
		}
	}

	if config.Web.StaticDir != "" {
		router.Static("/static", config.Web.StaticDir)
	}

	// HTTP Server（支持优雅关机）
	httpServer := &http.Server{
		Addr:    config.Server.IP + ":" + strconv.Itoa(config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", httpServer.Addr))

		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(groupCtx context.Context, cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case <-groupCtx.Done():
		logger.Warn("服务异常退出，开始关闭其余服务")
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		logger.Info("所有服务已优雅关闭")
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		os.Exit(1)
	}
}

func main() {
	// 先加载 .env，使其中的变量参与配置覆盖
	envErr := godotenv.Load()

	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()
	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	db, dbType, err := database.InitDB()
	if err != nil {
		logger.Error(fmt.Sprintf("数据库连接失败: %v", err))
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("数据库连接成功: %s", dbType))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 用 errgroup 管理 HTTP 服务与状态监控
	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, store.New(db), g, groupCtx); err != nil {
		logger.Error("启动服务失败", map[string]interface{}{"error": err.Error()})
		cancel()
		os.Exit(1)
	}

	GracefulShutdown(groupCtx, cancel, logger, g)

	logger.Info("程序已成功退出")
}
