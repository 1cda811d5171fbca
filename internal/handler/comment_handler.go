package handler

import (
	"net/http"

	"Vid_Community/internal/middleware"
	"Vid_Community/internal/model"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *service.CommentService
}

type CommentReq struct {
	Comment  string `json:"comment" form:"comment" binding:"required,max=100"`
	TheVideo uint64 `json:"the_video" form:"the_video" binding:"required"`
}

type commentResp struct {
	ID       uint64 `json:"id"`
	Comment  string `json:"comment"`
	TheVideo uint64 `json:"the_video"`
	Creator  string `json:"creator"`
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

func commentToResp(cm *model.Comment) commentResp {
	return commentResp{ID: cm.ID, Comment: cm.Content, TheVideo: cm.VideoID, Creator: cm.Creator.String()}
}

func (h *CommentHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]commentResp, 0, len(list))
	for i := range list {
		out = append(out, commentToResp(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req CommentReq
	if !bind(c, &req) {
		return
	}
	cm, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), req.Comment, req.TheVideo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResp(cm))
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cm, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentToResp(cm))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
