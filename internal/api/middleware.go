package api

import (
	"net/http"
	"strings"

	"github.com/annel0/mmo-tiles/internal/game"
	"github.com/gin-gonic/gin"
)

// ключи контекста запроса
const (
	ctxAccountID = "account_id"
	ctxAccount   = "account"
	ctxIsAdmin   = "is_admin"
	ctxToken     = "token"
)

// sessionMiddleware проверяет ключ сессии в заголовке Authorization
func (rs *RestServer) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			fail(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			fail(c, http.StatusUnauthorized, "Неверный формат токена")
			return
		}

		claims, err := rs.sessions.Validate(parts[1])
		if err != nil {
			fail(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}

		c.Set(ctxAccountID, claims.AccountID)
		c.Set(ctxAccount, claims.Account)
		c.Set(ctxIsAdmin, claims.IsAdmin)
		c.Set(ctxToken, parts[1])

		c.Next()
	}
}

// ownerMiddleware пускает к персонажу в игре только его учётную запись.
// Администратор управляет любым персонажем.
func (rs *RestServer) ownerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := rs.game.Player(c.Param("name"))
		if !ok {
			failErr(c, game.ErrNotOnline)
			return
		}
		if !c.GetBool(ctxIsAdmin) && p.AccountID() != c.GetUint64(ctxAccountID) {
			failErr(c, game.ErrCharacterNotOwned)
			return
		}
		c.Next()
	}
}

// adminMiddleware проверяет, что пользователь является администратором
func (rs *RestServer) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			fail(c, http.StatusForbidden, "Недостаточно прав доступа")
			return
		}
		c.Next()
	}
}
