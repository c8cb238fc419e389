package borrowing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/auth"
)

const defaultPageSize = 10

type Handler struct{ svc *Service }

// RegisterRoutes: r は認証済みグループ。staff は承認・却下・CSV出力に付けるガード。
func RegisterRoutes(r gin.IRoutes, svc *Service, staff gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.POST("/book-borrowing-requests", h.Submit)
	r.GET("/book-borrowing-requests", h.List)
	r.GET("/book-borrowing-requests/mine", h.ListMine)
	r.GET("/book-borrowing-requests/export", staff, h.Export)
	r.GET("/book-borrowing-requests/:id", h.Get)

	r.POST("/book-borrowing-requests/:id/approve", staff, h.Approve)
	r.POST("/book-borrowing-requests/:id/reject", staff, h.Reject)
}

// Submit godoc
// @Summary  貸出申請（1〜5冊）
// @Tags     borrowing
// @Accept   json
// @Produce  json
// @Param    body body SubmitRequest true "book ids"
// @Success  201 {object} RequestResponse
// @Failure  400 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Security BearerAuth
// @Router   /book-borrowing-requests [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}
	r, err := h.svc.Submit(c.Request.Context(), auth.UserID(c), req.BookIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Location", "/book-borrowing-requests/"+r.ID)
	c.JSON(http.StatusCreated, toResponse(r))
}

// Approve godoc
// @Summary  申請の承認（staff）
// @Tags     borrowing
// @Produce  json
// @Param    id path string true "request id"
// @Success  200 {object} RequestResponse
// @Failure  400 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Security BearerAuth
// @Router   /book-borrowing-requests/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	r, err := h.svc.Approve(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

// Reject godoc
// @Summary  申請の却下（staff）。押さえていた在庫を戻す
// @Tags     borrowing
// @Produce  json
// @Param    id path string true "request id"
// @Success  200 {object} RequestResponse
// @Failure  400 {object} errorDTO
// @Failure  404 {object} errorDTO
// @Security BearerAuth
// @Router   /book-borrowing-requests/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	r, err := h.svc.Reject(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

// Get godoc
// @Summary  申請の取得（一般ユーザーは自分の申請のみ）
// @Tags     borrowing
// @Produce  json
// @Param    id path string true "request id"
// @Success  200 {object} RequestResponse
// @Failure  404 {object} errorDTO
// @Security BearerAuth
// @Router   /book-borrowing-requests/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), auth.UserID(c), auth.IsStaff(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

// List godoc
// @Summary  申請一覧（staff は全件、一般ユーザーは自分の申請）
// @Tags     borrowing
// @Produce  json
// @Param    status      query string false "Waiting | Approved | Rejected (0/1/2)"
// @Param    requestorId query string false "staff only"
// @Param    pageIndex   query int    false ">= 1"
// @Param    pageSize    query int    false ">= 1"
// @Success  200 {object} PagedResult
// @Failure  400 {object} errorDTO
// @Security BearerAuth
// @Router   /book-borrowing-requests [get]
func (h *Handler) List(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		fail(c, err)
		return
	}
	f := Filter{Status: parseStatusFilter(c)}
	if auth.IsStaff(c) {
		if v := c.Query("requestorId"); v != "" {
			f.RequestorID = &v
		}
	} else {
		uid := auth.UserID(c)
		f.RequestorID = &uid
	}

	res, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListMine godoc
// @Summary  自分の申請一覧
// @Tags     borrowing
// @Produce  json
// @Param    status    query string false "Waiting | Approved | Rejected (0/1/2)"
// @Param    pageIndex query int    false ">= 1"
// @Param    pageSize  query int    false ">= 1"
// @Success  200 {object} PagedResult
// @Security BearerAuth
// @Router   /book-borrowing-requests/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.svc.ListByRequestor(c.Request.Context(), auth.UserID(c), parseStatusFilter(c), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Export godoc
// @Summary  申請のCSV出力（staff）
// @Tags     borrowing
// @Produce  text/csv
// @Param    status   query string false "Waiting | Approved | Rejected"
// @Param    encoding query string false "utf8 (BOM付き) | sjis"
// @Success  200 {file} file
// @Security BearerAuth
// @Router   /book-borrowing-requests/export [get]
func (h *Handler) Export(c *gin.Context) {
	enc, charset, err := csvEncoder(c.Query("encoding"))
	if err != nil {
		fail(c, err)
		return
	}
	rs, err := h.svc.Export(c.Request.Context(), Filter{Status: parseStatusFilter(c)})
	if err != nil {
		fail(c, err)
		return
	}
	body, err := encodeCSV(rs, enc)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="borrowing-requests.csv"`)
	c.Data(http.StatusOK, "text/csv; charset="+charset, body)
}

// ---------- helpers ----------

// 解釈できない status は絞り込みなし
func parseStatusFilter(c *gin.Context) *Status {
	if st, ok := ParseStatus(c.Query("status")); ok {
		return &st
	}
	return nil
}

// parsePage: どちらも無ければ全件。片方だけなら pageIndex=1 / pageSize=10 を補う。
func parsePage(c *gin.Context) (Page, error) {
	idxStr, sizeStr := c.Query("pageIndex"), c.Query("pageSize")
	if idxStr == "" && sizeStr == "" {
		return Page{}, nil
	}
	p := Page{PageIndex: 1, PageSize: defaultPageSize}
	if idxStr != "" {
		v, err := strconv.Atoi(idxStr)
		if err != nil || v < 1 {
			return Page{}, ErrInvalid("pageIndex must be an integer >= 1")
		}
		p.PageIndex = v
	}
	if sizeStr != "" {
		v, err := strconv.Atoi(sizeStr)
		if err != nil || v < 1 {
			return Page{}, ErrInvalid("pageSize must be an integer >= 1")
		}
		p.PageSize = v
	}
	return p, nil
}

func fail(c *gin.Context, err error) {
	status := ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorFromErr(err))
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errorBody(api.Code, api.Message)
	}
	return errorBody(CodeInternal, "internal error")
}
