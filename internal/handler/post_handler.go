package handler

import (
	"mime/multipart"
	"net/http"

	"Vid_Community/internal/middleware"
	"Vid_Community/internal/model"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

// PostReq JSON 或 multipart；post_image 可选
type PostReq struct {
	Post      string                `json:"post" form:"post" binding:"required,max=200"`
	PostImage *multipart.FileHeader `json:"-" form:"post_image"`
}

type postResp struct {
	ID        uint64  `json:"id"`
	Post      string  `json:"post"`
	PostImage *string `json:"post_image"`
	Creator   string  `json:"creator"`
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

func (h *PostHandler) resp(p *model.Post) postResp {
	out := postResp{ID: p.ID, Post: p.Body, Creator: p.Creator.String()}
	if p.Image != "" {
		url := h.svc.MediaURL(p.Image)
		out.PostImage = &url
	}
	return out
}

func (h *PostHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]postResp, 0, len(list))
	for i := range list {
		out = append(out, h.resp(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req PostReq
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), service.PostInput{
		Body:  req.Post,
		Image: req.PostImage,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.resp(p))
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resp(p))
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	if _, err := h.svc.Editable(c.Request.Context(), user, id); err != nil {
		writeError(c, err)
		return
	}
	var req PostReq
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), user, id, service.PostInput{
		Body:  req.Post,
		Image: req.PostImage,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resp(p))
}

func (h *PostHandler) Delete(c *gin.Context) {
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
