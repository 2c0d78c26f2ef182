package idle

import (
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// SessionControllerRoutes are the paths the presentation surface talks to.
type SessionControllerRoutes struct {
	State  string
	Reset  string
	Logout string
}

// SessionController exposes the coordinator's published state over HTTP so
// a warning dialog can render the countdown and feed the user's choice
// back. It contains no timing logic of its own.
type SessionController struct {
	Debug        bool
	Logger       Logger
	Routes       *SessionControllerRoutes
	Coordinator  *Coordinator
	ErrorHandler func(router.Context, error) error
}

type SessionControllerOption func(*SessionController) *SessionController

func WithSessionControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithSessionControllerRoutes(routes *SessionControllerRoutes) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func WithSessionControllerDebug(debug bool) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Debug = debug
		return c
	}
}

func WithSessionControllerErrorHandler(handler func(router.Context, error) error) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

// NewSessionController builds a controller bound to one coordinator.
func NewSessionController(coordinator *Coordinator, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger:      defLogger{},
		Coordinator: coordinator,
		Routes: &SessionControllerRoutes{
			State:  "/session/idle",
			Reset:  "/session/idle/reset",
			Logout: "/session/idle/logout",
		},
		ErrorHandler: defaultSessionErrHandler,
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterSessionRoutes mounts the idle-session routes on the app.
func RegisterSessionRoutes[T any](app router.Router[T], coordinator *Coordinator, opts ...SessionControllerOption) {
	controller := NewSessionController(coordinator, opts...)

	app.Get(controller.Routes.State, controller.StateShow).
		SetName("idle-state.get")

	app.Post(controller.Routes.Reset, controller.ResetPost).
		SetName("idle-reset.post")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("idle-logout.post")
}

// StateShow renders the published state snapshot.
func (a *SessionController) StateShow(ctx router.Context) error {
	state := a.Coordinator.State()

	if a.Debug {
		a.Logger.Debug("idle state: %s", print.MaybePrettyJSON(state))
	}

	return ctx.JSON(router.StatusOK, state)
}

// ResetPost is the "stay logged in" choice: it re-arms the full idle
// window and returns the fresh state.
func (a *SessionController) ResetPost(ctx router.Context) error {
	a.Coordinator.ResetTimer(ctx.Context())
	return ctx.JSON(router.StatusOK, a.Coordinator.State())
}

// LogoutPost is the "logout now" choice from the warning dialog.
func (a *SessionController) LogoutPost(ctx router.Context) error {
	if err := a.Coordinator.RequestLogout(ctx.Context()); err != nil {
		a.Logger.Error("logout error: %s", err)
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, a.Coordinator.State())
}

// ActivityMiddleware counts every authenticated request as a user activity
// pulse and, when the session cookie carries a JWT, tags compliance events
// with the session subject. Enforcement stays client-driven; this only
// keeps the server-side idle clock honest.
func ActivityMiddleware(coordinator *Coordinator, contextKey string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if subject, err := SessionSubject(ctx, contextKey); err == nil && subject != "" {
				coordinator.SetSubject(subject)
			}
			coordinator.Touch()
			return hf(ctx)
		}
	}
}

// SessionSubject extracts the subject from the JWT the auth middleware
// stored in the router context.
func SessionSubject(ctx router.Context, key string) (string, error) {
	if key == "" {
		key = "user" // default key used by JWT middleware
	}

	cookie := ctx.Locals(key)
	if cookie == nil {
		return "", ErrNoSession
	}

	token, ok := cookie.(*jwt.Token)
	if token == nil || !ok {
		return "", ErrNoSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return "", ErrNoSession
	}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}

	return "", ErrNoSession
}

func defaultSessionErrHandler(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ctx.JSON(richErr.Code, map[string]any{
			"error": richErr.Message,
		})
	}

	return ctx.JSON(router.StatusInternalServerError, map[string]any{
		"error": err.Error(),
	})
}
