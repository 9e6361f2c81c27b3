package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultProfilePicURL = "https://cdn-icons-png.flaticon.com/512/149/149071.png"

type UserProfile struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// Avatar возвращает картинку профиля или картинку по умолчанию
func (p UserProfile) Avatar() string {
	if p.ProfilePicURL == "" {
		return DefaultProfilePicURL
	}
	return p.ProfilePicURL
}

type SessionID = uuid.UUID

// Session явный контекст аутентификации пользователя.
// Создается после входа, удаляется при выходе.
type Session struct {
	ID          SessionID
	AccessToken string
	Profile     UserProfile
	CreateTime  time.Time
}

func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreateTime) >= ttl
}
