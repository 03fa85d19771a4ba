package directory

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
	service "github.com/zhouzirui/user-directory/backend/internal/service/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/session"
	view "github.com/zhouzirui/user-directory/backend/internal/view/directory"
	"github.com/zhouzirui/user-directory/backend/pkg/utils"
)

// Handler 用户目录的HTTP处理器
type Handler struct {
	sessions *session.Registry
	livePath string
}

// New 创建用户目录处理器。livePath 是页面脚本连接的 websocket 路径。
func New(sessions *session.Registry, livePath string) *Handler {
	return &Handler{
		sessions: sessions,
		livePath: livePath,
	}
}

// RegisterPageRoutes 注册页面路由
func (h *Handler) RegisterPageRoutes(r chi.Router) {
	r.Get("/", h.handlePage)
}

// RegisterRoutes 注册用户目录API路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.handleListUsers)
	r.Get("/users/stream", h.handleStreamUsers)
}

// StateResponse is the JSON shape of a directory snapshot. Records holds the
// filtered view.
type StateResponse struct {
	Phase      service.Phase      `json:"phase"`
	IsLoading  bool               `json:"isLoading"`
	SearchTerm string             `json:"searchTerm"`
	Count      int                `json:"count"`
	Records    []model.UserRecord `json:"records"`
}

// NewStateResponse converts a snapshot to its JSON shape.
func NewStateResponse(state service.State) StateResponse {
	records := state.Filtered
	if records == nil {
		records = []model.UserRecord{}
	}
	return StateResponse{
		Phase:      state.Phase,
		IsLoading:  state.IsLoading,
		SearchTerm: state.SearchTerm,
		Count:      len(records),
		Records:    records,
	}
}

// handlePage 渲染页面骨架，数据通过 websocket 推送
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := view.RenderPage(&buf, view.PageData{
		LivePath: h.livePath,
		State:    service.State{Phase: service.PhaseLoading, IsLoading: true},
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page failed")
		utils.RespondError(w, http.StatusInternalServerError, "render failed")
		return
	}
	utils.RespondHTML(w, http.StatusOK, buf.Bytes())
}

// handleListUsers mounts a view for the duration of the request, waits for
// its fetch to settle and returns the filtered records. A failed fetch is an
// empty list, not an error status.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")

	sess := h.sessions.Mount(r.Context())
	defer h.sessions.Unmount(sess.ID)

	select {
	case <-sess.Store.Settled():
	case <-r.Context().Done():
		return
	}

	sess.Store.SetSearchTerm(term)
	utils.RespondJSON(w, http.StatusOK, NewStateResponse(sess.Store.Snapshot()))
}

// handleStreamUsers 通过SSE推送加载状态和最终结果
func (h *Handler) handleStreamUsers(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	logger := zerolog.Ctx(r.Context())
	term := r.URL.Query().Get("search")

	sess := h.sessions.Mount(r.Context())
	defer h.sessions.Unmount(sess.ID)
	sess.Store.SetSearchTerm(term)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	first := sess.Store.Snapshot()
	if err := utils.SendSSEEvent(w, flusher, "state", NewStateResponse(first)); err != nil {
		logger.Debug().Err(err).Msg("sse write failed")
		return
	}
	if !first.IsLoading {
		return
	}

	select {
	case <-sess.Store.Settled():
	case <-r.Context().Done():
		return
	}

	if err := utils.SendSSEEvent(w, flusher, "state", NewStateResponse(sess.Store.Snapshot())); err != nil {
		logger.Debug().Err(err).Msg("sse write failed")
	}
}
