package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"Vid_Community/internal/middleware"
	"Vid_Community/internal/model"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	svc *service.VideoService
}

type CreateVideoReq struct {
	Video *multipart.FileHeader `json:"-" form:"video" binding:"required"`
	Title string                `json:"title" form:"title" binding:"required,max=40"`
	Desc  string                `json:"desc" form:"desc" binding:"required,max=100"`
}

// UpdateVideoReq 文件与作者不可修改，请求中携带也会被忽略
type UpdateVideoReq struct {
	Title string `json:"title" form:"title" binding:"required,max=40"`
	Desc  string `json:"desc" form:"desc" binding:"required,max=100"`
}

type videoBody struct {
	ID        uint64    `json:"id"`
	Video     string    `json:"video"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"`
}

type videoResp struct {
	videoBody
	Comments []string `json:"comments"`
}

func NewVideoHandler(svc *service.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

func (h *VideoHandler) body(v *model.Video) videoBody {
	return videoBody{
		ID:        v.ID,
		Video:     h.svc.MediaURL(v.File),
		Title:     v.Title,
		Desc:      v.Desc,
		Creator:   v.Creator.String(),
		CreatedAt: v.CreatedAt,
	}
}

func (h *VideoHandler) resp(c *gin.Context, v *model.Video) videoResp {
	links := make([]string, 0, len(v.Comments))
	for _, cm := range v.Comments {
		links = append(links, absoluteURL(c, fmt.Sprintf("/api/comments/%d/", cm.ID)))
	}
	return videoResp{videoBody: h.body(v), Comments: links}
}

func (h *VideoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]videoResp, 0, len(list))
	for i := range list {
		out = append(out, h.resp(c, &list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Create multipart 上传
func (h *VideoHandler) Create(c *gin.Context) {
	var req CreateVideoReq
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), service.VideoInput{
		File:  req.Video,
		Title: req.Title,
		Desc:  req.Desc,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.resp(c, v))
}

func (h *VideoHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resp(c, v))
}

// Update 先做 404/403 判断，再校验请求体
func (h *VideoHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.svc.Editable(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	var req UpdateVideoReq
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), id, req.Title, req.Desc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.body(v))
}

func (h *VideoHandler) Delete(c *gin.Context) {
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
