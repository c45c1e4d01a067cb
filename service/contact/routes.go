package contact

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"gopkg.in/gomail.v2"
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

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contact", h.HandleContact).Methods("POST")
}

// HandleContact stores a contact-form submission. Open to anonymous visitors.
func (h *Handler) HandleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	if errs := forms.Contact.Validate(r); len(errs) > 0 {
		utils.SetFlash(w, "There was an error with your submission.", "danger")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	message := models.ContactMessage{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}

	if err := h.db.Create(&message).Error; err != nil {
		http.Error(w, "Error saving message", http.StatusInternalServerError)
		return
	}

	// The site owner gets a copy by mail; the visitor never waits on SMTP.
	go func() {
		if err := sendContactEmail(message); err != nil {
			log.Printf("Error sending contact email: %v", err)
		}
	}()

	utils.SetFlash(w, "Your message has been sent!", "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func sendContactEmail(message models.ContactMessage) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	contactEmail := os.Getenv("CONTACT_EMAIL")

	if smtpHost == "" || contactEmail == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", contactEmail)
	m.SetHeader("Reply-To", message.Email)
	m.SetHeader("Subject", fmt.Sprintf("Contact form message from %s", message.Name))
	m.SetBody("text/plain", message.Message)

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
