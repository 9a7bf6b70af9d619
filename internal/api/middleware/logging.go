package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// LogApi writes one line per request. Health probes are skipped.
func LogApi() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("time=%s level=INFO msg=\"HTTP request\" ip=%s status=%d method=%s path=%s latency=%s ua=%q error=%q\n",
				param.TimeStamp.Format("2006-01-02T15:04:05.000Z07:00"),
				param.ClientIP,
				param.StatusCode,
				param.Method,
				param.Path,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	})
}
