package middleware

import (
	"net/http"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// JWTのtvとDBのtoken_versionを照合して、操作者(Principal)をcontextに入れる。
// ロールと有効フラグはDBの値を使う
func LoadPrincipal(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil {
				c.Logger().Errorj(log.JSON{
					"msg":     "load principal failed",
					"user_id": userID,
					"error":   err.Error(),
				})
				return c.JSON(http.StatusServiceUnavailable, errorJSON("db error"))
			}
			if user == nil || !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//token_versionが一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			p := user.Principal()
			c.Set(CtxPrincipalKey, &p)

			return next(c)
		}
	}
}

// contextから操作者を取り出す。なければnil
func PrincipalFrom(c echo.Context) *model.Principal {
	p, ok := c.Get(CtxPrincipalKey).(*model.Principal)
	if !ok {
		return nil
	}
	return p
}
