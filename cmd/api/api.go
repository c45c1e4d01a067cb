package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell-server/service/blog"
	"github.com/inkwell-app/inkwell-server/service/contact"
	"github.com/inkwell-app/inkwell-server/service/user"
	"github.com/inkwell-app/inkwell-server/service/ws"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(router)

	blogHandler := blog.NewPostHandler(s.db)
	blogHandler.RegisterRoutes(router)

	contactHandler := contact.NewHandler(s.db)
	contactHandler.RegisterRoutes(router)

	chatHandler := ws.NewChatHandler(s.db)
	chatHandler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)

	chain := handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(cors(router)))

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, chain)
}
