package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell-server/cmd/forms"
	"github.com/inkwell-app/inkwell-server/cmd/models"
	"github.com/inkwell-app/inkwell-server/cmd/utils"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up account and follow routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.ShowLogin).Methods("GET")
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/register", h.ShowRegister).Methods("GET")
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/logout", utils.AuthMiddleware(h.HandleLogout)).Methods("GET")
	router.HandleFunc("/profile", utils.AuthMiddleware(h.ShowProfile)).Methods("GET")
	router.HandleFunc("/profile", utils.AuthMiddleware(h.HandleProfileUpdate)).Methods("POST")
	router.HandleFunc("/follow/{id}", utils.AuthMiddleware(h.HandleFollow)).Methods("POST")
	router.HandleFunc("/unfollow/{id}", utils.AuthMiddleware(h.HandleUnfollow)).Methods("POST")
	router.HandleFunc("/uploads/{filename}", h.ServeUpload).Methods("GET")
}

// ShowLogin returns the login form definition for the page template.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.respondWithForm(w, r, forms.Login)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.Login.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	var user models.User
	result := h.db.Where("email = ?", r.FormValue("email")).First(&user)
	if result.Error != nil {
		// Same notice whether the email or the password was wrong.
		utils.SetFlash(w, "Invalid email or password.", "danger")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(r.FormValue("password"))); err != nil {
		utils.SetFlash(w, "Invalid email or password.", "danger")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := utils.NewSessionToken(user.ID)
	if err != nil {
		http.Error(w, "Error establishing session", http.StatusInternalServerError)
		return
	}

	utils.SetSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowRegister returns the registration form definition.
func (h *Handler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.respondWithForm(w, r, forms.Register)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.Register.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))

	// Duplicates get a friendly message instead of a raw constraint error.
	var existing models.User
	if result := h.db.Where("email = ? OR username = ?", email, username).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		message := "Username is already in use"
		if existing.Email == email {
			message = "Email is already in use"
		}
		http.Error(w, message, http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(r.FormValue("password")), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
	}

	if err := h.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Username or email is already in use", http.StatusConflict)
			return
		}
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	utils.SetFlash(w, "Registration successful. Please login.", "success")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	utils.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowProfile returns the caller's record plus the profile form pre-populated
// with current values.
func (h *Handler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	var followed []models.Follow
	h.db.Where("follower_id = ?", user.ID).Preload("Followed").Find(&followed)

	following := make([]map[string]interface{}, 0, len(followed))
	for _, follow := range followed {
		if follow.Followed == nil {
			continue
		}
		following = append(following, map[string]interface{}{
			"id":       follow.Followed.ID,
			"username": follow.Followed.Username,
		})
	}

	form := forms.Profile.WithValues(map[string]string{
		"username": user.Username,
		"email":    user.Email,
		"address":  user.Address,
		"phone":    user.Phone,
	})

	response := map[string]interface{}{
		"user":      user,
		"form":      form,
		"following": following,
	}
	if flash, ok := utils.PopFlash(w, r); ok {
		response["flash"] = flash
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleProfileUpdate mutates the loaded user record and saves it in one
// place, instead of scattering writes across the handler.
func (h *Handler) HandleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(utils.MaxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.Profile.Validate(r); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))

	var conflict models.User
	if result := h.db.Where("(email = ? OR username = ?) AND id <> ?", email, username, user.ID).First(&conflict); result.Error == nil {
		message := "Username is already in use"
		if conflict.Email == email {
			message = "Email is already in use"
		}
		http.Error(w, message, http.StatusConflict)
		return
	}

	user.Username = username
	user.Email = email
	user.Address = r.FormValue("address")
	user.Phone = r.FormValue("phone")

	if password := r.FormValue("password"); password != "" {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Error hashing password", http.StatusInternalServerError)
			return
		}
		user.PasswordHash = string(passwordHash)
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["profile_picture"]; len(files) > 0 {
			file, err := files[0].Open()
			if err != nil {
				http.Error(w, "Error processing upload", http.StatusInternalServerError)
				return
			}
			defer file.Close()

			filename, err := utils.SaveUpload(file, files[0])
			if err != nil {
				http.Error(w, fmt.Sprintf("Error saving upload: %v", err), http.StatusBadRequest)
				return
			}
			user.ProfilePicture = filename
		}
	}

	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating profile", http.StatusInternalServerError)
		return
	}

	utils.SetFlash(w, "Profile updated successfully.", "success")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// HandleFollow adds the target to the caller's following set. Re-following is
// a no-op thanks to FirstOrCreate against the unique pair.
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	h.handleFollowChange(w, r, true)
}

func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	h.handleFollowChange(w, r, false)
}

func (h *Handler) handleFollowChange(w http.ResponseWriter, r *http.Request, follow bool) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if uint(targetID) == userID {
		if follow {
			utils.SetFlash(w, "You cannot follow yourself!", "danger")
		} else {
			utils.SetFlash(w, "You cannot unfollow yourself!", "danger")
		}
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	var target models.User
	if err := h.db.First(&target, targetID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if follow {
		relation := models.Follow{FollowerID: userID, FollowedID: target.ID}
		if err := h.db.Where(&relation).FirstOrCreate(&relation).Error; err != nil {
			http.Error(w, "Error following user", http.StatusInternalServerError)
			return
		}
		utils.SetFlash(w, fmt.Sprintf("You are now following %s!", target.Username), "success")
	} else {
		if err := h.db.Where("follower_id = ? AND followed_id = ?", userID, target.ID).Delete(&models.Follow{}).Error; err != nil {
			http.Error(w, "Error unfollowing user", http.StatusInternalServerError)
			return
		}
		utils.SetFlash(w, fmt.Sprintf("You have unfollowed %s!", target.Username), "success")
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// ServeUpload serves stored profile pictures.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	if containsDotDot(filename) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	filePath := filepath.Join(utils.UploadDir(), filepath.Clean(filename))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", getContentType(filePath))
	http.ServeFile(w, r, filePath)
}

func containsDotDot(v string) bool {
	if !filepath.IsAbs(v) {
		v = filepath.Clean(filepath.Join("/", v))
	}
	return filepath.Clean(v) != v
}

func getContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func (h *Handler) respondWithForm(w http.ResponseWriter, r *http.Request, form forms.Form) {
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
