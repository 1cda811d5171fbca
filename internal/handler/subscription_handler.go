package handler

import (
	"net/http"

	"Vid_Community/internal/middleware"
	"Vid_Community/internal/model"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	svc *service.SubscriptionService
}

// SubscriptionReq subscriber 由服务端绑定为当前用户
type SubscriptionReq struct {
	SubscribedTo uint64 `json:"subscribed_to" form:"subscribed_to" binding:"required"`
}

type subscriptionResp struct {
	ID           uint64 `json:"id"`
	Subscriber   uint64 `json:"subscriber"`
	SubscribedTo uint64 `json:"subscribed_to"`
}

func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

func subscriptionToResp(s *model.Subscription) subscriptionResp {
	return subscriptionResp{ID: s.ID, Subscriber: s.SubscriberID, SubscribedTo: s.SubscribedToID}
}

// List 只列出当前用户的订阅
func (h *SubscriptionHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]subscriptionResp, 0, len(list))
	for i := range list {
		out = append(out, subscriptionToResp(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req SubscriptionReq
	if !bind(c, &req) {
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), req.SubscribedTo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subscriptionToResp(sub))
}

func (h *SubscriptionHandler) Delete(c *gin.Context) {
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
