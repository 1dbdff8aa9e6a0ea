package handler

import (
	"github.com/blogfolio/internal/auth"
	"github.com/blogfolio/internal/service"
	"github.com/blogfolio/internal/storage"
	"github.com/rs/zerolog"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts    *service.PostService
	accounts *service.AccountService
	tokens   *auth.Issuer
	files    storage.Store
	log      zerolog.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(posts *service.PostService, accounts *service.AccountService, tokens *auth.Issuer, files storage.Store, log zerolog.Logger) *API {
	useJSONFieldNames()
	return &API{
		posts:    posts,
		accounts: accounts,
		tokens:   tokens,
		files:    files,
		log:      log,
	}
}
