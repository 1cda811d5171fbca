package handler

import (
	"net/http"

	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

// RegisterReq 注册请求体，password 只写不读
type RegisterReq struct {
	Username  string `json:"username" form:"username" binding:"required,max=150,username"`
	Email     string `json:"email" form:"email" binding:"required,max=254,email"`
	FirstName string `json:"first_name" form:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" form:"last_name" binding:"max=150"`
	Password  string `json:"password" form:"password" binding:"required,max=128"`
}

type TokenReq struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type RefreshReq struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required"`
}

type userResp struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register 注册接口
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResp{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// Token 用户名密码登录
func (h *UserHandler) Token(c *gin.Context) {
	var req TokenReq
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.ObtainToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh 刷新 access；开启轮换时同时返回新 refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var req RefreshReq
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Blacklist 登出
func (h *UserHandler) Blacklist(c *gin.Context) {
	var req RefreshReq
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Blacklist(c.Request.Context(), req.Refresh); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
