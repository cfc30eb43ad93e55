package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/history"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/syncer"
)

// Handler 是排班板的 HTTP 入口。
// 它扮演被排除在核心之外的 UI 层：表单保存直接改 Store 并标脏，
// 排班格子的操作构造命令交给历史管理器。
type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	translator ut.Translator
	store      *store.Store
	engine     *syncer.Engine
	history    *history.Manager
	cache      localcache.Cache

	// 启动时从配置算好的口令哈希
	adminHash  []byte
	viewerHash []byte

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, st *store.Store, engine *syncer.Engine, hist *history.Manager, cache localcache.Cache) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var viewerHash []byte
	if cfg.Viewer.Password != "" {
		viewerHash, err = bcrypt.GenerateFromPassword([]byte(cfg.Viewer.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		translator: trans,
		store:      st,
		engine:     engine,
		history:    hist,
		cache:      cache,
		adminHash:  adminHash,
		viewerHash: viewerHash,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		editorOnly := h.RequiredRole([]domain.Role{domain.RoleEditor})

		r.Route("/collections/{name}", func(r chi.Router) {
			r.Use(h.collection)
			r.Get("/", h.GetCollection)
			r.With(editorOnly).Put("/", h.SaveCollectionItem)
			r.With(editorOnly).Delete("/{id}", h.DeleteCollectionItem)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", h.GetSchedule)
			r.With(editorOnly).Post("/assignments", h.SaveAssignment)
			r.With(editorOnly).Delete("/assignments/{entityID}/{date}/{assignmentID}", h.DeleteAssignment)
			r.With(editorOnly).Post("/drag", h.DragAssignment)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.GetHistoryStatus)
			r.With(editorOnly).Post("/undo", h.Undo)
			r.With(editorOnly).Post("/redo", h.Redo)
			r.With(editorOnly).Post("/clear", h.ClearHistory)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.With(editorOnly).Put("/", h.UpdateSettings)
		})

		r.Route("/ui-state", func(r chi.Router) {
			r.Get("/", h.GetUIState)
			r.Put("/", h.SaveUIState)
		})
	})
}
