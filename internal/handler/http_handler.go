package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/media"
	"github.com/Anselwang99/mateFinder/internal/service"
	"github.com/Anselwang99/mateFinder/internal/store"
	"github.com/Anselwang99/mateFinder/pkg/log"
	"github.com/Anselwang99/mateFinder/pkg/response"
)

// Handler exposes the REST surface: accounts, chats, locations.
type Handler struct {
	users service.UserService
	chats service.ChatService
	media *media.Service
	auth  *AuthMiddleware
}

func NewHandler(users service.UserService, chats service.ChatService, mediaSvc *media.Service, auth *AuthMiddleware) *Handler {
	return &Handler{
		users: users,
		chats: chats,
		media: mediaSvc,
		auth:  auth,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Signup)
			auth.POST("/login", h.Login)
		}

		users := api.Group("/users")
		users.Use(h.auth.RequireAuth())
		{
			users.GET("/me", h.GetMe)
			users.PATCH("/me", h.UpdateMe)
		}

		chats := api.Group("/chats")
		chats.Use(h.auth.RequireAuth())
		{
			chats.GET("", h.ListChats)
			chats.POST("", h.CreateChat)
			chats.GET("/:chatId", h.GetChat)
			chats.POST("/:chatId/messages", h.SendMessage)
			chats.POST("/:chatId/media", h.SendMedia)
		}

		locations := api.Group("/locations")
		locations.Use(h.auth.RequireAuth())
		{
			locations.PATCH("", h.UpdateLocation)
			locations.GET("/nearby", h.FindNearby)
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func (h *Handler) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Signup(ctx, &req)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			response.Conflict(c, "email already exists")
			return
		}
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("signup failed")
		response.InternalError(c, "failed to sign up")
		return
	}

	response.Created(c, result)
}

func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to log in")
		return
	}

	response.Success(c, result)
}

func (h *Handler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetProfile(ctx, UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("get profile failed")
		response.InternalError(c, "failed to load profile")
		return
	}
	response.Success(c, user.ToResponse())
}

func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(ctx, UserID(c), &req)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("update profile failed")
		response.InternalError(c, "failed to update profile")
		return
	}
	response.Success(c, user.ToResponse())
}

func (h *Handler) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	chats, err := h.chats.ListChats(ctx, UserID(c))
	if err != nil {
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("list chats failed")
		response.InternalError(c, "failed to list chats")
		return
	}
	response.Success(c, chats)
}

func (h *Handler) CreateChat(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chat, created, err := h.chats.CreateChat(ctx, UserID(c), req.ReceiverID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfChat):
			response.BadRequest(c, "cannot open a chat with yourself")
		case errors.Is(err, store.ErrUserNotFound):
			response.NotFound(c, "receiver not found")
		default:
			lg := log.Ctx(ctx)
			lg.Error().Err(err).Msg("create chat failed")
			response.InternalError(c, "failed to create chat")
		}
		return
	}

	if created {
		response.Created(c, chat)
		return
	}
	response.Success(c, chat)
}

func (h *Handler) GetChat(c *gin.Context) {
	ctx := c.Request.Context()
	chat, err := h.chats.GetChat(ctx, UserID(c), c.Param("chatId"))
	if err != nil {
		h.chatError(c, err, "get chat failed")
		return
	}
	response.Success(c, chat)
}

func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.chats.SendMessage(ctx, UserID(c), c.Param("chatId"), req.Content, nil)
	if err != nil {
		h.chatError(c, err, "send message failed")
		return
	}
	response.Created(c, msg)
}

// SendMedia is the two-phase media send: the upload must fully succeed
// before any message is appended, so a failed upload never leaves a
// dangling message behind.
func (h *Handler) SendMedia(c *gin.Context) {
	ctx := c.Request.Context()

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	desc, err := h.media.Upload(ctx, UserID(c), file.Filename, contentType, file.Size, src)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			response.BadRequest(c, "unsupported content type")
		case errors.Is(err, media.ErrTooLarge):
			response.BadRequest(c, "file exceeds the maximum size")
		case errors.Is(err, media.ErrUpload):
			response.UploadFailed(c, "media upload failed")
		default:
			lg := log.Ctx(ctx)
			lg.Error().Err(err).Msg("media upload failed")
			response.UploadFailed(c, "media upload failed")
		}
		return
	}

	msg, err := h.chats.SendMessage(ctx, UserID(c), c.Param("chatId"), c.PostForm("content"), desc)
	if err != nil {
		h.chatError(c, err, "media message failed")
		return
	}
	response.Created(c, msg)
}

func (h *Handler) UpdateLocation(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "longitude and latitude are required")
		return
	}

	if err := h.users.UpdateLocation(ctx, UserID(c), *req.Longitude, *req.Latitude); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Msg("update location failed")
		response.InternalError(c, "failed to update location")
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (h *Handler) FindNearby(c *gin.Context) {
	ctx := c.Request.Context()

	var lon, lat *float64
	if v, err := strconv.ParseFloat(c.Query("longitude"), 64); err == nil {
		lon = &v
	}
	if v, err := strconv.ParseFloat(c.Query("latitude"), 64); err == nil {
		lat = &v
	}
	distance, _ := strconv.ParseFloat(c.Query("distance"), 64)

	found, err := h.users.FindNearby(ctx, UserID(c), lon, lat, distance)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoLocation):
			response.BadRequest(c, "no coordinates given and no stored location")
		case errors.Is(err, store.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			lg := log.Ctx(ctx)
			lg.Error().Err(err).Msg("nearby search failed")
			response.InternalError(c, "failed to search nearby users")
		}
		return
	}
	response.Success(c, found)
}

func (h *Handler) chatError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		response.NotFound(c, "chat not found")
	case errors.Is(err, service.ErrNotParticipant):
		response.Forbidden(c, "you are not a participant of this chat")
	case errors.Is(err, service.ErrEmptyContent):
		response.BadRequest(c, "message content is required")
	default:
		lg := log.Ctx(c.Request.Context())
		lg.Error().Err(err).Msg(logMsg)
		response.InternalError(c, "internal error")
	}
}
