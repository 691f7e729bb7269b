package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agropulse/src/core/auth"
)

const (
	// ClientIDHeader 未启用鉴权时客户端自报的 ID
	ClientIDHeader = "Client-Id"
	// AnonymousClient 无法识别客户端时使用的 ID
	AnonymousClient = "anonymous"

	contextKey = "session.client_id"
)

// Middleware 解析客户端身份并写入上下文。
// enforce 为 true 时缺少或无效的令牌返回 401，exempt 中的路由不校验
func Middleware(tokens *auth.AuthToken, enforce bool, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.FullPath()] {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token != "" && tokens != nil {
			if clientID, err := tokens.VerifyToken(token); err == nil {
				c.Set(contextKey, clientID)
				c.Next()
				return
			}
			if enforce {
				abortUnauthorized(c, "Invalid or expired session")
				return
			}
		}

		if enforce {
			abortUnauthorized(c, "Missing session token")
			return
		}

		clientID := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if clientID == "" {
			clientID = AnonymousClient
		}
		c.Set(contextKey, clientID)
		c.Next()
	}
}

// ClientID 返回当前请求的客户端 ID
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return AnonymousClient
}

// bearerToken 优先读取 Authorization 头，websocket 连接可以用 token 查询参数
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
}
