package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values for users
const (
	RoleUser      = "user"
	RoleVolunteer = "volunteer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the recognized role values
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleVolunteer || role == RoleAdmin
}

// User holds the structure for the users collection in mongo.
// Password and OTP state are never serialized to JSON.
type User struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Email    string             `json:"email" bson:"email"`
	Phone    string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Password string             `json:"-" bson:"password"`
	Role     string             `json:"role" bson:"role"`

	City    string `json:"city,omitempty" bson:"city,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	Bio     string `json:"bio,omitempty" bson:"bio,omitempty"`
	Photo   string `json:"photo,omitempty" bson:"photo,omitempty"`

	Notifications NotificationPrefs `json:"notifications" bson:"notifications"`
	Privacy       PrivacySettings   `json:"privacy" bson:"privacy"`
	Stats         UserStats         `json:"stats" bson:"stats"`

	OTP           string     `json:"-" bson:"otp,omitempty"`
	OTPExpiry     *time.Time `json:"-" bson:"otpExpiry,omitempty"`
	IsOTPVerified bool       `json:"-" bson:"isOtpVerified"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NotificationPrefs holds the per-user notification flags
type NotificationPrefs struct {
	EmailUpdates      bool `json:"emailUpdates" bson:"emailUpdates"`
	SMSAlerts         bool `json:"smsAlerts" bson:"smsAlerts"`
	PushNotifications bool `json:"pushNotifications" bson:"pushNotifications"`
	WeeklyDigest      bool `json:"weeklyDigest" bson:"weeklyDigest"`
}

// PrivacySettings holds the per-user privacy flags and profile visibility
type PrivacySettings struct {
	Visibility   string `json:"visibility" bson:"visibility"`
	ShowLocation bool   `json:"showLocation" bson:"showLocation"`
	ShowReports  bool   `json:"showReports" bson:"showReports"`
	AllowContact bool   `json:"allowContact" bson:"allowContact"`
}

// UserStats holds denormalized complaint counters, maintained by the
// complaint handlers rather than derived on read
type UserStats struct {
	TotalReports    int `json:"totalReports" bson:"totalReports"`
	ResolvedReports int `json:"resolvedReports" bson:"resolvedReports"`
}

// DefaultNotificationPrefs returns the preference flags a new account starts with
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{
		EmailUpdates:      true,
		SMSAlerts:         false,
		PushNotifications: true,
		WeeklyDigest:      true,
	}
}

// DefaultPrivacySettings returns the privacy settings a new account starts with
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		Visibility:   "Public",
		ShowLocation: true,
		ShowReports:  true,
		AllowContact: true,
	}
}
