package report

import (
	"net/http"
	"strconv"
	"time"

	"gitee.com/flycash/trip-platform/internal/service/ledger"
	"gitee.com/flycash/trip-platform/internal/web"
	"github.com/gin-gonic/gin"
)

// Handler 投递流水报表
type Handler struct {
	svc ledger.Service
}

func NewHandler(svc ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) PublicRoutes(engine *gin.Engine) {
	group := engine.Group("/api/v1/reports")
	group.GET("/roi", h.ROI)
}

type ROIResp struct {
	Start           int64            `json:"start"`
	End             int64            `json:"end"`
	TotalCost       int64            `json:"totalCost"`
	EngagementValue int64            `json:"engagementValue"`
	ROI             int64            `json:"roi"`
	Delivered       map[string]int64 `json:"delivered"`
}

// ROI 查询 [start, end) 的投入产出，毫秒时间戳参数
func (h *Handler) ROI(ctx *gin.Context) {
	start, err1 := strconv.ParseInt(ctx.Query("start"), 10, 64)
	end, err2 := strconv.ParseInt(ctx.Query("end"), 10, 64)
	if err1 != nil || err2 != nil || end <= start {
		ctx.JSON(http.StatusBadRequest, web.Result[any]{Code: web.CodeInvalidParameter, Msg: "时间范围非法"})
		return
	}
	report, err := h.svc.ROI(ctx.Request.Context(), time.UnixMilli(start), time.UnixMilli(end))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, web.Result[any]{Code: web.CodeInternal, Msg: err.Error()})
		return
	}
	delivered := make(map[string]int64, len(report.Delivered))
	for typ, cnt := range report.Delivered {
		delivered[string(typ)] = cnt
	}
	ctx.JSON(http.StatusOK, web.Result[ROIResp]{Data: ROIResp{
		Start:           start,
		End:             end,
		TotalCost:       report.TotalCost,
		EngagementValue: report.EngagementValue,
		ROI:             report.EngagementValue - report.TotalCost,
		Delivered:       delivered,
	}})
}
