package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// currentUser は認証ミドルウェアが設定したuser_idとuser_roleを取り出します。
// 取り出せない場合はエラーレスポンスを書き込んでfalseを返します。
func currentUser(c *gin.Context) (int, string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return 0, "", false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return 0, "", false
	}

	userRoleVal, exists := c.Get("user_role")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
		return 0, "", false
	}
	userRole, ok := userRoleVal.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user role type in context"})
		return 0, "", false
	}

	return userID, userRole, true
}
