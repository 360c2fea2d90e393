package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"modular-shop-backend/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Recovery 恢复中间件，处理panic并返回500；verbose 时把panic信息带回响应
func Recovery(log logrus.FieldLogger, verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				log.WithFields(logrus.Fields{
					"panic":  fmt.Sprint(rec),
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(stack),
				}).Error("panic recovered")

				if verbose {
					utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
						utils.CodeInternal,
						fmt.Sprintf("Internal server error: %v", rec),
						string(stack))
					return
				}
				utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
