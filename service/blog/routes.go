package blog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell-server/cmd/forms"
	"github.com/inkwell-app/inkwell-server/cmd/models"
	"github.com/inkwell-app/inkwell-server/cmd/utils"
)

type PostHandler struct {
	db *gorm.DB
}

func NewPostHandler(db *gorm.DB) *PostHandler {
	return &PostHandler{db: db}
}

func (h *PostHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/policy", h.Policy).Methods("GET")

	// Post routes
	router.HandleFunc("/create", utils.AuthMiddleware(h.ShowCreate)).Methods("GET")
	router.HandleFunc("/create", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/post/{id}", h.GetPost).Methods("GET")
	router.HandleFunc("/post/{id}", utils.AuthMiddleware(h.CommentPost)).Methods("POST")
	router.HandleFunc("/edit/{id}", utils.AuthMiddleware(h.ShowEdit)).Methods("GET")
	router.HandleFunc("/edit/{id}", utils.AuthMiddleware(h.EditPost)).Methods("POST")
	router.HandleFunc("/delete/{id}", utils.AuthMiddleware(h.DeletePost)).Methods("POST")

	// Reaction routes, the only JSON-contract pair
	router.HandleFunc("/like/{id}", utils.AuthMiddleware(h.LikePost)).Methods("POST")
	router.HandleFunc("/dislike/{id}", utils.AuthMiddleware(h.DislikePost)).Methods("POST")

	// Comment and share routes
	router.HandleFunc("/comment/{id}", utils.AuthMiddleware(h.CommentPost)).Methods("POST")
	router.HandleFunc("/share/{id}", utils.AuthMiddleware(h.SharePost)).Methods("POST")
}

// Index lists all posts, newest first, together with the contact form the
// landing page embeds.
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	var posts []models.Post
	if err := h.db.Preload("User").Order("created_at desc").Find(&posts).Error; err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"posts":        posts,
		"contact_form": forms.Contact,
	}
	if flash, ok := utils.PopFlash(w, r); ok {
		response["flash"] = flash
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *PostHandler) Policy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Inkwell privacy policy: account data is stored for the operation of the service and is never shared with third parties.")
}

// ShowCreate returns the post form definition.
func (h *PostHandler) ShowCreate(w http.ResponseWriter, r *http.Request) {
	h.respondWithForm(w, r, forms.CreatePost)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.CreatePost.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	post := models.Post{
		UserID:  userID,
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: r.FormValue("content"),
	}

	if err := h.db.Create(&post).Error; err != nil {
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	utils.SetFlash(w, "Post created successfully.", "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GetPost returns a post and its comments. Public.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	var comments []models.Comment
	if err := h.db.Where("post_id = ?", post.ID).Preload("User").Find(&comments).Error; err != nil {
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"post":         post,
		"comments":     comments,
		"comment_form": forms.Comment,
	}
	if flash, ok := utils.PopFlash(w, r); ok {
		response["flash"] = flash
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ShowEdit returns the edit form pre-populated with the post's current values.
// Author only.
func (h *PostHandler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	if !h.requireAuthor(w, r, post, "edit") {
		return
	}

	form := forms.EditPost.WithValues(map[string]string{
		"title":   post.Title,
		"content": post.Content,
	})
	h.respondWithForm(w, r, form)
}

// EditPost overwrites title and content in place. Author only.
func (h *PostHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	if !h.requireAuthor(w, r, post, "edit") {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.EditPost.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	post.Title = strings.TrimSpace(r.FormValue("title"))
	post.Content = r.FormValue("content")

	if err := h.db.Save(post).Error; err != nil {
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	utils.SetFlash(w, "Post updated successfully.", "success")
	http.Redirect(w, r, fmt.Sprintf("/post/%d", post.ID), http.StatusSeeOther)
}

// DeletePost removes a post and its comments in one transaction. Author only.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}
	if !h.requireAuthor(w, r, post, "delete") {
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comments", http.StatusInternalServerError)
		return
	}

	if err := tx.Delete(post).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	utils.SetFlash(w, "Post deleted successfully.", "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LikePost increments the like counter and returns the new value. There is no
// per-user dedup: the same user may like a post any number of times.
func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.incrementCounter(w, r, "likes")
}

func (h *PostHandler) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.incrementCounter(w, r, "dislikes")
}

func (h *PostHandler) incrementCounter(w http.ResponseWriter, r *http.Request, column string) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		writeJSONError(w, "Post not found", http.StatusNotFound)
		return
	}

	if err := h.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
		writeJSONError(w, "Error updating counter", http.StatusInternalServerError)
		return
	}

	if err := h.db.First(&post, post.ID).Error; err != nil {
		writeJSONError(w, "Error reading counter", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if column == "likes" {
		json.NewEncoder(w).Encode(map[string]int{"likes": post.Likes})
	} else {
		json.NewEncoder(w).Encode(map[string]int{"dislikes": post.Dislikes})
	}
}

// CommentPost attaches a comment to a post. Serves both the post-page form and
// the bare /comment/{id} endpoint; empty content fails validation either way.
func (h *PostHandler) CommentPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.Comment.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	comment := models.Comment{
		UserID:  userID,
		PostID:  post.ID,
		Content: r.FormValue("content"),
	}

	if err := h.db.Create(&comment).Error; err != nil {
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d", post.ID), http.StatusSeeOther)
}

// SharePost flashes whether the named recipient exists. Nothing is persisted.
func (h *PostHandler) SharePost(w http.ResponseWriter, r *http.Request) {
	post, ok := h.loadPost(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	sharedWith := strings.TrimSpace(r.FormValue("shared_with"))

	var target models.User
	if err := h.db.Where("username = ?", sharedWith).First(&target).Error; err == nil {
		utils.SetFlash(w, fmt.Sprintf("Post shared with %s", target.Username), "success")
	} else {
		utils.SetFlash(w, "User not found", "danger")
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d", post.ID), http.StatusSeeOther)
}

func (h *PostHandler) loadPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return nil, false
	}

	var post models.Post
	if err := h.db.Preload("User").First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return nil, false
	}
	return &post, true
}

// requireAuthor redirects with a flash notice when the caller does not own the
// post.
func (h *PostHandler) requireAuthor(w http.ResponseWriter, r *http.Request, post *models.Post, action string) bool {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	if post.UserID != userID {
		utils.SetFlash(w, fmt.Sprintf("You do not have permission to %s this post.", action), "danger")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return false
	}
	return true
}

func (h *PostHandler) respondWithForm(w http.ResponseWriter, r *http.Request, form forms.Form) {
	response := map[string]interface{}{
		"form": form,
	}
	if flash, ok := utils.PopFlash(w, r); ok {
		response["flash"] = flash
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writeValidationErrors(w http.ResponseWriter, errs map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": errs,
	})
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
