package books

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 参照は全員、登録・冊数変更は staff のみ
func RegisterRoutes(r gin.IRoutes, svc *Service, staff gin.HandlerFunc) {
	h := &Handler{svc: svc}

	r.GET("/books", h.ListBooks)
	r.GET("/books/:book_id", h.GetBook)

	r.POST("/books", staff, h.CreateBook)
	r.PUT("/books/:book_id/quantity", staff, h.UpdateQuantity)
}

// CreateBook godoc
// @Summary  本の登録
// @Tags     books
// @Accept   json
// @Produce  json
// @Param    body body CreateBookRequest true "book"
// @Success  201 {object} BookResponse
// @Failure  400 {object} errorDTO
// @Security BearerAuth
// @Router   /books [post]
func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.CreateBook(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", "/books/"+res.ID)
	c.JSON(http.StatusCreated, res)
}

// GetBook godoc
// @Summary  本の取得
// @Tags     books
// @Produce  json
// @Param    book_id path string true "book id"
// @Success  200 {object} BookResponse
// @Failure  404 {object} errorDTO
// @Security BearerAuth
// @Router   /books/{book_id} [get]
func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBook(c.Request.Context(), c.Param("book_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListBooks godoc
// @Summary  本の一覧
// @Tags     books
// @Produce  json
// @Param    limit  query int false "default 50"
// @Param    offset query int false "default 0"
// @Success  200 {object} ListBooksResult
// @Security BearerAuth
// @Router   /books [get]
func (h *Handler) ListBooks(c *gin.Context) {
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	res, err := h.svc.ListBooks(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateQuantity godoc
// @Summary  総冊数の変更（貸出中の冊数を下回る値は不可）
// @Tags     books
// @Accept   json
// @Produce  json
// @Param    book_id path string true "book id"
// @Param    body body UpdateQuantityRequest true "quantity"
// @Success  200 {object} BookResponse
// @Failure  409 {object} errorDTO
// @Security BearerAuth
// @Router   /books/{book_id}/quantity [put]
func (h *Handler) UpdateQuantity(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.UpdateQuantity(c.Request.Context(), c.Param("book_id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, errorFromErr(err))
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
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

// DBエラー等の生メッセージは返さない
func errorFromErr(err error) errorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return errorBody(api.Code, api.Message)
	}
	return errorBody(CodeInternal, "internal error")
}
