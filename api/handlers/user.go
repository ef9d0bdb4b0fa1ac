package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/email"
	"github.com/cleanstreet/clean-street-api/models"
)

const otpTTL = 10 * time.Minute

// User exported for testing purposes
type User struct {
	DB      databases.UserDatabase
	CDB     databases.ComplaintDatabase
	Config  config.Config
	Email   email.Sender
	Uploads *Uploader
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type authResponse struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  string             `json:"role"`
	Token string             `json:"token"`
}

// RegisterHandler creates a new account and issues a session token
func (u User) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		config.ErrorStatus("name, email and password are required", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err == nil {
		config.ErrorStatus("user already exists", http.StatusBadRequest, w, nil)
		return
	}
	if err != mongo.ErrNoDocuments {
		config.ErrorStatus("failed to check existing user", http.StatusInternalServerError, w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	role := models.RoleUser
	if u.Config.AdminEmailDomain != "" && strings.HasSuffix(req.Email, u.Config.AdminEmailDomain) {
		role = models.RoleAdmin
	}

	now := time.Now()
	user := models.User{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Password:      string(hashed),
		Role:          role,
		Notifications: models.DefaultNotificationPrefs(),
		Privacy:       models.DefaultPrivacySettings(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := u.DB.InsertOne(ctx, user)
	if err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	// a failed welcome email never fails the registration
	if err := u.Email.Send(user.Name, user.Email, "Welcome to Clean Street!",
		fmt.Sprintf("Hi %s,\n\nThank you for registering with Clean Street. We're excited to have you on board!", user.Name)); err != nil {
		zap.S().Errorw("failed to send welcome email", "error", err, "to", user.Email)
	}

	token, err := api.IssueSessionToken(u.Config.JWTSecret, id.Hex(), role, user.Email)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "registration successful", Data: authResponse{
		ID: id, Name: user.Name, Email: user.Email, Role: role, Token: token,
	}})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and issues a session token
func (u User) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		config.ErrorStatus("invalid email or password", http.StatusUnauthorized, w, nil)
		return
	}

	token, err := api.IssueSessionToken(u.Config.JWTSecret, user.ID.Hex(), user.Role, user.Email)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Data: authResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Token: token,
	}})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler generates a one-time code and emails it
func (u User) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("user not found", http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}

	otp, err := generateOTP()
	if err != nil {
		config.ErrorStatus("failed to generate OTP", http.StatusInternalServerError, w, err)
		return
	}
	expiry := time.Now().Add(otpTTL)

	_, err = u.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"otp":           otp,
		"otpExpiry":     expiry,
		"isOtpVerified": false,
		"updatedAt":     time.Now(),
	}})
	if err != nil {
		config.ErrorStatus("failed to store OTP", http.StatusInternalServerError, w, err)
		return
	}

	// the endpoint still reports success if the email cannot be sent
	if err := u.Email.Send(user.Name, user.Email, "Password Reset OTP",
		fmt.Sprintf("Your OTP is %s. It is valid for 10 minutes.\n\nIf you didn't request this, please ignore this email.", otp)); err != nil {
		zap.S().Errorw("failed to send OTP email", "error", err, "to", user.Email)
	}

	resp := models.Response{Success: true, Message: "OTP sent to registered email"}
	if !u.Config.IsProduction() {
		resp.Data = map[string]string{"otp": otp}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTPHandler validates the one-time code and issues a reset token
func (u User) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("user not found", http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}

	if user.OTP == "" {
		config.ErrorStatus("no OTP requested for this user", http.StatusBadRequest, w, nil)
		return
	}
	if user.OTPExpiry == nil || user.OTPExpiry.Before(time.Now()) {
		config.ErrorStatus("OTP expired", http.StatusBadRequest, w, nil)
		return
	}
	if user.OTP != strings.TrimSpace(req.OTP) {
		config.ErrorStatus("invalid OTP", http.StatusBadRequest, w, nil)
		return
	}

	_, err = u.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"isOtpVerified": true, "updatedAt": time.Now()}})
	if err != nil {
		config.ErrorStatus("failed to mark OTP verified", http.StatusInternalServerError, w, err)
		return
	}

	resetToken, err := api.IssueResetToken(u.Config.JWTSecret, user.ID.Hex())
	if err != nil {
		config.ErrorStatus("failed to sign reset token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{
		Success: true,
		Message: "OTP verified. You can reset your password now.",
		Data:    map[string]string{"resetToken": resetToken},
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordHandler exchanges a verified reset token for a new password
func (u User) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Token == "" || req.Password == "" {
		config.ErrorStatus("token and password are required", http.StatusBadRequest, w, nil)
		return
	}

	variant, err := api.DecodeToken(u.Config.JWTSecret, req.Token)
	if err != nil {
		config.ErrorStatus("invalid or expired token", http.StatusBadRequest, w, err)
		return
	}
	var userID string
	switch v := variant.(type) {
	case api.SessionToken:
		userID = v.ID
	case api.LegacyToken:
		userID = v.ID
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("invalid or expired token", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": oid})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("user not found", http.StatusNotFound, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}

	if !user.IsOTPVerified {
		config.ErrorStatus("OTP verification required", http.StatusBadRequest, w, nil)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	_, err = u.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set":   bson.M{"password": string(hashed), "isOtpVerified": false, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpiry": ""},
	})
	if err != nil {
		config.ErrorStatus("failed to reset password", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "Password reset successful. You can log in now."})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ProfileHandler returns the caller's own profile
func (u User) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": identity.ID})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Data: user})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateProfileRequest struct {
	Name          *string                   `json:"name"`
	Phone         *string                   `json:"phone"`
	City          *string                   `json:"city"`
	Address       *string                   `json:"address"`
	Bio           *string                   `json:"bio"`
	Notifications *models.NotificationPrefs `json:"notifications"`
	Privacy       *models.PrivacySettings   `json:"privacy"`
}

// UpdateProfileHandler updates the caller's own profile, with optional photo upload
func (u User) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	var req updateProfileRequest
	photo := ""
	if isMultipart(r) {
		p, err := u.Uploads.PhotoFromRequest(r)
		if err != nil {
			config.ErrorStatus("failed to process photo upload", http.StatusBadRequest, w, err)
			return
		}
		photo = p
		if err := profileRequestFromForm(r, &req); err != nil {
			config.ErrorStatus("failed to parse form fields", http.StatusBadRequest, w, err)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
			return
		}
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		set["city"] = strings.TrimSpace(*req.City)
	}
	if req.Address != nil {
		set["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Bio != nil {
		set["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Notifications != nil {
		set["notifications"] = *req.Notifications
	}
	if req.Privacy != nil {
		set["privacy"] = *req.Privacy
	}
	if photo != "" {
		set["photo"] = photo
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": identity.ID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update profile", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, nil)
		return
	}

	user, err := u.DB.FindOne(ctx, bson.M{"_id": identity.ID})
	if err != nil {
		config.ErrorStatus("failed to fetch updated profile", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "Profile updated successfully", Data: user})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AdminListUsersHandler returns a paginated, searchable list of users
func (u User) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r, 25)
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	role := r.URL.Query().Get("role")

	filter := bson.M{}
	if search != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": search, "$options": "i"}},
			{"email": bson.M{"$regex": search, "$options": "i"}},
			{"phone": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if role != "" {
		filter["role"] = role
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	total, err := u.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
		return
	}

	sortOpt := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	users, err := u.DB.Find(ctx, filter, databases.PaginatedOpts(limit, page), sortOpt)
	if err != nil {
		config.ErrorStatus("failed to list users", http.StatusInternalServerError, w, err)
		return
	}
	if len(users) == 0 {
		users = []models.User{}
	}

	b, err := json.Marshal(models.Response{
		Success:    true,
		Count:      models.ListCount(len(users)),
		Data:       users,
		Pagination: paginationBlock(page, limit, total),
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AdminGetUserHandler returns a single user by id
func (u User) AdminGetUserHandler(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Data: user})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type adminUpdateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Role    *string `json:"role"`
	Phone   *string `json:"phone"`
	City    *string `json:"city"`
	Address *string `json:"address"`
	Bio     *string `json:"bio"`
}

// AdminUpdateUserHandler edits a user, e.g. changing their role
func (u User) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	var req adminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Role != nil && !models.ValidRole(*req.Role) {
		config.ErrorStatus("role must be one of: user, volunteer, admin", http.StatusBadRequest, w, nil)
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		set["role"] = *req.Role
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		set["city"] = strings.TrimSpace(*req.City)
	}
	if req.Address != nil {
		set["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Bio != nil {
		set["bio"] = strings.TrimSpace(*req.Bio)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, nil)
		return
	}

	user, err := u.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to fetch updated user", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "User updated", Data: user})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AdminDeleteUserHandler deletes a user and cascades to their complaints
func (u User) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}

	// complaints this user reported go with the account; their votes and
	// comments on other complaints are left behind as dangling references
	deleted, err := u.CDB.DeleteMany(ctx, bson.M{"reportedBy": user.ID})
	if err != nil {
		config.ErrorStatus("failed to delete user complaints", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("cascading user deletion", "user", user.ID.Hex(), "complaintsDeleted", deleted)

	if _, err := u.DB.DeleteOne(ctx, bson.M{"_id": user.ID}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "User and related complaints deleted successfully"})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func profileRequestFromForm(r *http.Request, req *updateProfileRequest) error {
	strField := func(name string) *string {
		if vs, ok := r.MultipartForm.Value[name]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}
	req.Name = strField("name")
	req.Phone = strField("phone")
	req.City = strField("city")
	req.Address = strField("address")
	req.Bio = strField("bio")

	if v := strField("notifications"); v != nil {
		var n models.NotificationPrefs
		if err := json.Unmarshal([]byte(*v), &n); err != nil {
			return fmt.Errorf("invalid notifications field: %w", err)
		}
		req.Notifications = &n
	}
	if v := strField("privacy"); v != nil {
		var p models.PrivacySettings
		if err := json.Unmarshal([]byte(*v), &p); err != nil {
			return fmt.Errorf("invalid privacy field: %w", err)
		}
		req.Privacy = &p
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
