package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterAuthRoutes 注册认证路由
func (r *Router) RegisterAuthRoutes(a *AuthHandler) {
	r.Handle("/auth/api/v1/register", methodOnly(http.MethodPost, a.Register))
	r.Handle("/auth/api/v1/login", methodOnly(http.MethodPost, a.Login))
	r.Handle("/auth/api/v1/logout", methodOnly(http.MethodPost, a.Logout))
}

// RegisterProfileRoutes 注册用户档案路由
func (r *Router) RegisterProfileRoutes(p *ProfileHandler) {
	r.Handle("/user/api/v1/profile", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			p.GetProfile(w, req)
		case http.MethodPut:
			p.UpdateProfile(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterPatientRoutes 注册化验值与相似度匹配路由
func (r *Router) RegisterPatientRoutes(l *LabsHandler, s *SimilarHandler) {
	r.Handle("/patient/api/v1/labs", methodOnly(http.MethodPost, l.SubmitLabs))
	r.Handle("/patient/api/v1/labs/export", methodOnly(http.MethodGet, l.ExportLabs))
	r.Handle("/patient/api/v1/similar", methodOnly(http.MethodPost, s.FindSimilar))
	r.Handle("/patient/api/v1/similar/explain", methodOnly(http.MethodPost, s.Explain))
}

// RegisterAnalyticsRoutes 注册统计与风险路由
func (r *Router) RegisterAnalyticsRoutes(a *AnalyticsHandler) {
	r.Handle("/analytics/api/v1/stats", methodOnly(http.MethodGet, a.GetStats))
	r.Handle("/analytics/api/v1/risk", methodOnly(http.MethodPost, a.CategorizeRisk))
}

// RegisterContentRoutes 注册教育内容路由
func (r *Router) RegisterContentRoutes(c *ContentHandler) {
	r.Handle("/content/api/v1/modules", methodOnly(http.MethodGet, c.ListModules))

	// modules/{slug}
	r.Handle("/content/api/v1/modules/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		slug := strings.TrimPrefix(req.URL.Path, "/content/api/v1/modules/")
		if slug == "" || strings.Contains(slug, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		c.GetModule(w, req, slug)
	})
}

// RegisterHealthRoute 注册健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}
