package trip

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gitee.com/flycash/trip-platform/internal/domain"
	"gitee.com/flycash/trip-platform/internal/errs"
	"gitee.com/flycash/trip-platform/internal/service/lifecycle"
	"gitee.com/flycash/trip-platform/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/gotomicro/ego/core/elog"
)

// Handler 行程生命周期的HTTP入口
type Handler struct {
	svc    lifecycle.Service
	logger *elog.Component
}

func NewHandler(svc lifecycle.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: elog.DefaultLogger,
	}
}

func (h *Handler) PublicRoutes(engine *gin.Engine) {
	group := engine.Group("/api/v1/trips")
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/apply", h.Apply)
	group.GET("/:id/transitions", h.ListTransitions)
}

type RecipientVO struct {
	CustomerID int64  `json:"customerId"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Language   string `json:"language"`
}

type CreateTripReq struct {
	BizID      int64       `json:"bizId"`
	StartTime  int64       `json:"startTime"` // 毫秒时间戳
	EndTime    int64       `json:"endTime"`
	PaidAmount int64       `json:"paidAmount"` // 分
	Currency   string      `json:"currency"`
	Recipient  RecipientVO `json:"recipient"`
}

type TripVO struct {
	ID         int64       `json:"id"`
	BizID      int64       `json:"bizId"`
	Status     string      `json:"status"`
	StartTime  int64       `json:"startTime"`
	EndTime    int64       `json:"endTime"`
	PaidAmount int64       `json:"paidAmount"`
	Currency   string      `json:"currency"`
	Recipient  RecipientVO `json:"recipient"`
	Version    int         `json:"version"`
}

type ApplyReq struct {
	Trigger         string `json:"trigger"`
	Actor           string `json:"actor"`
	ExpectedVersion int    `json:"expectedVersion"`
	RefundAmount    int64  `json:"refundAmount"`
	NewStartTime    int64  `json:"newStartTime"`
	NewEndTime      int64  `json:"newEndTime"`
}

type ApplyResp struct {
	Trip       TripVO   `json:"trip"`
	RequestIDs []uint64 `json:"requestIds"`
}

type TransitionVO struct {
	ID         int64    `json:"id"`
	FromStatus string   `json:"fromStatus"`
	ToStatus   string   `json:"toStatus"`
	Trigger    string   `json:"trigger"`
	Actor      string   `json:"actor"`
	RequestIDs []uint64 `json:"requestIds"`
	Ctime      int64    `json:"ctime"`
}

func (h *Handler) Create(ctx *gin.Context) {
	var req CreateTripReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, web.Result[any]{Code: web.CodeInvalidParameter, Msg: err.Error()})
		return
	}
	created, err := h.svc.CreateTrip(ctx.Request.Context(), domain.Trip{
		BizID:      req.BizID,
		StartTime:  time.UnixMilli(req.StartTime),
		EndTime:    time.UnixMilli(req.EndTime),
		PaidAmount: req.PaidAmount,
		Currency:   req.Currency,
		Recipient: domain.Recipient{
			CustomerID: req.Recipient.CustomerID,
			Phone:      req.Recipient.Phone,
			Email:      req.Recipient.Email,
			Language:   req.Recipient.Language,
		},
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, web.Result[TripVO]{Data: toTripVO(created)})
}

func (h *Handler) Get(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		writeError(ctx, errs.ErrInvalidParameter)
		return
	}
	trip, err := h.svc.GetTrip(ctx.Request.Context(), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, web.Result[TripVO]{Data: toTripVO(trip)})
}

func (h *Handler) Apply(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		writeError(ctx, errs.ErrInvalidParameter)
		return
	}
	var req ApplyReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, web.Result[any]{Code: web.CodeInvalidParameter, Msg: err.Error()})
		return
	}
	payload := domain.TriggerPayload{
		Actor:        req.Actor,
		Now:          time.Now(),
		RefundAmount: req.RefundAmount,
	}
	if req.NewStartTime > 0 {
		payload.NewStartTime = time.UnixMilli(req.NewStartTime)
	}
	if req.NewEndTime > 0 {
		payload.NewEndTime = time.UnixMilli(req.NewEndTime)
	}
	result, err := h.svc.Apply(ctx.Request.Context(), id,
		domain.TripTrigger(req.Trigger), payload, req.ExpectedVersion)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, web.Result[ApplyResp]{Data: ApplyResp{
		Trip:       toTripVO(result.Trip),
		RequestIDs: result.RequestIDs,
	}})
}

func (h *Handler) ListTransitions(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		writeError(ctx, errs.ErrInvalidParameter)
		return
	}
	transitions, err := h.svc.ListTransitions(ctx.Request.Context(), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	vos := make([]TransitionVO, 0, len(transitions))
	for _, t := range transitions {
		vos = append(vos, TransitionVO{
			ID:         t.ID,
			FromStatus: t.FromStatus.String(),
			ToStatus:   t.ToStatus.String(),
			Trigger:    t.Trigger.String(),
			Actor:      t.Actor,
			RequestIDs: t.RequestIDs,
			Ctime:      t.Ctime.UnixMilli(),
		})
	}
	ctx.JSON(http.StatusOK, web.Result[[]TransitionVO]{Data: vos})
}

func toTripVO(trip domain.Trip) TripVO {
	return TripVO{
		ID:         trip.ID,
		BizID:      trip.BizID,
		Status:     trip.Status.String(),
		StartTime:  trip.StartTime.UnixMilli(),
		EndTime:    trip.EndTime.UnixMilli(),
		PaidAmount: trip.PaidAmount,
		Currency:   trip.Currency,
		Recipient: RecipientVO{
			CustomerID: trip.Recipient.CustomerID,
			Phone:      trip.Recipient.Phone,
			Email:      trip.Recipient.Email,
			Language:   trip.Recipient.Language,
		},
		Version: trip.Version,
	}
}

// writeError 领域错误映射到HTTP状态码和业务码
func writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrTripNotFound):
		ctx.JSON(http.StatusNotFound, web.Result[any]{Code: web.CodeNotFound, Msg: err.Error()})
	case errors.Is(err, errs.ErrVersionMismatch):
		ctx.JSON(http.StatusConflict, web.Result[any]{Code: web.CodeVersionConflict, Msg: err.Error()})
	case errors.Is(err, errs.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, web.Result[any]{Code: web.CodeInvalidTransition, Msg: err.Error()})
	case errors.Is(err, errs.ErrInvalidParameter):
		ctx.JSON(http.StatusBadRequest, web.Result[any]{Code: web.CodeInvalidParameter, Msg: err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, web.Result[any]{Code: web.CodeInternal, Msg: err.Error()})
	}
}
