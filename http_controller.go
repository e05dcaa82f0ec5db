package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar is the route surface the controller needs from the router.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// IdentityController exposes the subsystem as a JSON API: three login
// surfaces, registration, password resets, and invite resolution.
type IdentityController struct {
	Logger           Logger
	Repo             RepositoryManager
	Gate             *Gate
	SuperAdminAuth   *CookieAuthenticator
	CompanyAdminAuth *CookieAuthenticator
	UserAuth         *CookieAuthenticator
	Invites          *InviteManager

	resetInitialize    *InitializePasswordResetHandler
	resetFinalize      *FinalizePasswordResetHandler
	registerUser       *RegisterUserHandler
	registerCompany    *RegisterCompanyHandler
	registerSuperAdmin *RegisterSuperAdminHandler
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLogger(l Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithRepository(repo RepositoryManager) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Repo = repo
		return c
	}
}

func WithGate(g *Gate) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Gate = g
		return c
	}
}

func WithSuperAdminAuth(a *CookieAuthenticator) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.SuperAdminAuth = a
		return c
	}
}

func WithCompanyAdminAuth(a *CookieAuthenticator) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.CompanyAdminAuth = a
		return c
	}
}

func WithUserAuth(a *CookieAuthenticator) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.UserAuth = a
		return c
	}
}

func WithInviteManager(m *InviteManager) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Invites = m
		return c
	}
}

// WithMailer seeds the password reset flow with a mail transport.
func WithMailer(m Mailer) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.resetInitialize = NewInitializePasswordResetHandler(c.Repo, m)
		return c
	}
}

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}
	if c.Gate == nil {
		panic("Missing Gate in identity controller...")
	}
	if c.SuperAdminAuth == nil || c.CompanyAdminAuth == nil || c.UserAuth == nil {
		panic("Missing cookie authenticators in identity controller...")
	}

	if c.Invites == nil {
		c.Invites = NewInviteManager(c.Repo, nil)
	}
	if c.resetInitialize == nil {
		c.resetInitialize = NewInitializePasswordResetHandler(c.Repo, nil)
	}
	c.resetFinalize = NewFinalizePasswordResetHandler(c.Repo)
	c.registerUser = NewRegisterUserHandler(c.Repo)
	c.registerCompany = NewRegisterCompanyHandler(c.Repo)
	c.registerSuperAdmin = NewRegisterSuperAdminHandler(c.Repo)

	return c
}

// RegisterIdentityRoutes mounts every endpoint of the subsystem.
func RegisterIdentityRoutes(app RouteRegistrar, opts ...IdentityControllerOption) *IdentityController {
	c := NewIdentityController(opts...)

	app.Post("/auth/admin/register", c.SuperAdminRegister)
	app.Post("/auth/admin/login", c.SuperAdminLogin)
	app.Post("/auth/admin/logout", c.SuperAdminLogout)
	app.Get("/auth/admin/me", c.SuperAdminMe)

	app.Post("/auth/company/register", c.CompanyRegister)
	app.Post("/auth/company/login", c.CompanyAdminLogin)
	app.Post("/auth/company/logout", c.CompanyAdminLogout)
	app.Get("/auth/company/me", c.CompanyAdminMe)

	app.Post("/auth/signup", c.UserSignup)
	app.Post("/auth/login", c.UserLogin)
	app.Post("/auth/logout", c.UserLogout)
	app.Get("/auth/me", c.UserMe)

	app.Post("/auth/password-reset", c.PasswordResetRequest)
	app.Post("/auth/password-reset/confirm", c.PasswordResetConfirm)

	app.Get("/invites/company/:token", c.CompanyInviteShow)
	app.Post("/invites/company/:token/redeem", c.CompanyInviteRedeem)
	app.Get("/invites/tester/:token", c.TesterInviteShow)
	app.Get("/invites/pending", c.PendingInviteShow)

	app.Post("/companies/:id/invites", c.CompanyInviteCreate)
	app.Post("/companies/:id/invite-link", c.PermanentInviteCreate)

	return c
}

// LoginRequest is the shared credential payload of all three login surfaces.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupRequest is the end-user registration payload.
type SignupRequest struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// CompanyRegisterRequest provisions a tenant with its owner.
type CompanyRegisterRequest struct {
	CompanyName string `form:"company_name" json:"company_name"`
	FirstName   string `form:"first_name" json:"first_name"`
	LastName    string `form:"last_name" json:"last_name"`
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r CompanyRegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// SuperAdminRegisterRequest is the first-run bootstrap payload.
type SuperAdminRegisterRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SuperAdminRegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// ResetRequestPayload starts a password reset.
type ResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetConfirmPayload completes a password reset.
type ResetConfirmPayload struct {
	Token    string `form:"token" json:"token"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

// InviteCreatePayload addresses a company invite.
type InviteCreatePayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r InviteCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) SuperAdminRegister(ctx router.Context) error {
	payload := new(SuperAdminRegisterRequest)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	var admin *SuperAdmin
	err := a.registerSuperAdmin.Execute(ctx.Context(), RegisterSuperAdminMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *RegisterSuperAdminResponse) {
			admin = resp.Admin
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	token, err := a.SuperAdminAuth.Auther().TokenService().Generate(admin.ID.String())
	if err != nil {
		return RespondError(ctx, err)
	}
	a.SuperAdminAuth.SetSession(ctx, token)

	return ctx.JSON(router.StatusCreated, map[string]any{
		"id":    admin.ID,
		"email": admin.Email,
	})
}

func (a *IdentityController) SuperAdminLogin(ctx router.Context) error {
	return a.login(ctx, a.SuperAdminAuth)
}

func (a *IdentityController) SuperAdminLogout(ctx router.Context) error {
	a.SuperAdminAuth.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *IdentityController) SuperAdminMe(ctx router.Context) error {
	identity, err := a.Gate.ResolveSuperAdmin(ctx.Context(), a.SuperAdminAuth.SessionToken(ctx))
	if err != nil {
		return RespondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, identityView(identity))
}

func (a *IdentityController) CompanyRegister(ctx router.Context) error {
	payload := new(CompanyRegisterRequest)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	var resp *RegisterCompanyResponse
	err := a.registerCompany.Execute(ctx.Context(), RegisterCompanyMessage{
		CompanyName: payload.CompanyName,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Email:       payload.Email,
		Password:    payload.Password,
		OnResponse: func(r *RegisterCompanyResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	token, err := a.CompanyAdminAuth.Auther().TokenService().Generate(
		resp.Admin.ID.String(),
		WithCompanyClaims(resp.Company.ID.String(), RoleOwner),
	)
	if err != nil {
		return RespondError(ctx, err)
	}
	a.CompanyAdminAuth.SetSession(ctx, token)

	return ctx.JSON(router.StatusCreated, map[string]any{
		"company": resp.Company,
		"user": map[string]any{
			"id":    resp.User.ID,
			"email": resp.User.Email,
		},
		"role": RoleOwner,
	})
}

func (a *IdentityController) CompanyAdminLogin(ctx router.Context) error {
	return a.login(ctx, a.CompanyAdminAuth)
}

func (a *IdentityController) CompanyAdminLogout(ctx router.Context) error {
	a.CompanyAdminAuth.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *IdentityController) CompanyAdminMe(ctx router.Context) error {
	identity, err := a.Gate.ResolveCompanyAdmin(ctx.Context(), a.CompanyAdminAuth.SessionToken(ctx))
	if err != nil {
		return RespondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, identityView(identity))
}

func (a *IdentityController) UserSignup(ctx router.Context) error {
	payload := new(SignupRequest)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	var resp *RegisterUserResponse
	err := a.registerUser.Execute(ctx.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			resp = r
		},
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	token, err := a.UserAuth.Auther().TokenService().Generate(resp.User.ID.String())
	if err != nil {
		return RespondError(ctx, err)
	}
	a.UserAuth.SetSession(ctx, token)

	return ctx.JSON(router.StatusCreated, map[string]any{
		"id":              resp.User.ID,
		"email":           resp.User.Email,
		"claimed_invites": resp.Claimed,
	})
}

func (a *IdentityController) UserLogin(ctx router.Context) error {
	return a.login(ctx, a.UserAuth)
}

func (a *IdentityController) UserLogout(ctx router.Context) error {
	a.UserAuth.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *IdentityController) UserMe(ctx router.Context) error {
	identity, err := a.Gate.ResolveUser(ctx.Context(), a.UserAuth.SessionToken(ctx))
	if err != nil {
		return RespondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, identityView(identity))
}

func (a *IdentityController) PasswordResetRequest(ctx router.Context) error {
	payload := new(ResetRequestPayload)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	err := a.resetInitialize.Execute(ctx.Context(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	// identical response whether or not the email matched an account
	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *IdentityController) PasswordResetConfirm(ctx router.Context) error {
	payload := new(ResetConfirmPayload)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	err := a.resetFinalize.Execute(ctx.Context(), FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	})
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

func (a *IdentityController) CompanyInviteShow(ctx router.Context) error {
	invite, err := a.Invites.ResolveCompanyInvite(ctx.Context(), ctx.Param("token"))
	if err != nil {
		return RespondError(ctx, err)
	}

	view := map[string]any{
		"permanent":  invite.Permanent(),
		"expires_at": invite.ExpiresAt,
	}
	if invite.Email != nil {
		view["email"] = *invite.Email
	}
	if invite.Company != nil {
		view["company"] = map[string]any{
			"id":       invite.Company.ID,
			"name":     invite.Company.Name,
			"slug":     invite.Company.Slug,
			"logo_url": invite.Company.LogoURL,
		}
	}

	return ctx.JSON(router.StatusOK, view)
}

func (a *IdentityController) CompanyInviteRedeem(ctx router.Context) error {
	identity, err := a.Gate.ResolveUser(ctx.Context(), a.UserAuth.SessionToken(ctx))
	if err != nil {
		return RespondError(ctx, err)
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return RespondError(ctx, ErrTokenInvalid)
	}

	invite, err := a.Invites.RedeemCompanyInvite(ctx.Context(), ctx.Param("token"), userID)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":    true,
		"company_id": invite.CompanyID,
	})
}

func (a *IdentityController) TesterInviteShow(ctx router.Context) error {
	view, err := a.Invites.ResolveTesterInvite(ctx.Context(), ctx.Param("token"))
	if err != nil {
		return RespondError(ctx, err)
	}
	return ctx.JSON(router.StatusOK, view)
}

func (a *IdentityController) PendingInviteShow(ctx router.Context) error {
	identity, err := a.Gate.ResolveUser(ctx.Context(), a.UserAuth.SessionToken(ctx))
	if err != nil {
		return RespondError(ctx, err)
	}

	view, err := a.Invites.ResolvePendingInvite(ctx.Context(), identity.Email())
	if err != nil {
		// no parked invite is a normal outcome, not an error
		if goerrors.Is(err, ErrInviteNotFound) {
			return ctx.JSON(router.StatusOK, map[string]any{"has_invite": false})
		}
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"has_invite": true,
		"invite":     view,
	})
}

func (a *IdentityController) CompanyInviteCreate(ctx router.Context) error {
	admin, companyID, err := a.requireCompanyAdmin(ctx)
	if err != nil {
		return RespondError(ctx, err)
	}

	payload := new(InviteCreatePayload)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	adminID, err := uuid.Parse(admin.ID())
	if err != nil {
		return RespondError(ctx, ErrTokenInvalid)
	}

	invite, err := a.Invites.CreateCompanyInvite(ctx.Context(), companyID, payload.Email, &adminID)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"token":      invite.Token,
		"expires_at": invite.ExpiresAt,
	})
}

func (a *IdentityController) PermanentInviteCreate(ctx router.Context) error {
	_, companyID, err := a.requireCompanyAdmin(ctx)
	if err != nil {
		return RespondError(ctx, err)
	}

	invite, err := a.Invites.GetOrCreatePermanentInvite(ctx.Context(), companyID)
	if err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token":      invite.Token,
		"expires_at": invite.ExpiresAt,
	})
}

func (a *IdentityController) login(ctx router.Context, auth *CookieAuthenticator) error {
	payload := new(LoginRequest)
	if err := bindAndValidate(ctx, payload); err != nil {
		return RespondError(ctx, err)
	}

	if err := auth.Login(ctx, payload.Email, payload.Password); err != nil {
		return RespondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// requireCompanyAdmin authenticates the request and pins it to the company in
// the path. An admin of one company operating on another gets a 403.
func (a *IdentityController) requireCompanyAdmin(ctx router.Context) (CompanyIdentity, uuid.UUID, error) {
	identity, err := a.Gate.ResolveCompanyAdmin(ctx.Context(), a.CompanyAdminAuth.SessionToken(ctx))
	if err != nil {
		return nil, uuid.Nil, err
	}

	if err := a.Gate.RequireRole(identity, RoleManager); err != nil {
		return nil, uuid.Nil, err
	}

	companyID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return nil, uuid.Nil, goerrors.New("invalid company id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if identity.CompanyID() != companyID.String() {
		return nil, uuid.Nil, ErrForbidden
	}

	return identity, companyID, nil
}

type validatable interface {
	Validate() error
}

func bindAndValidate(ctx router.Context, payload validatable) error {
	if err := ctx.Bind(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"validation": err.Error()})
	}

	return nil
}

func identityView(id Identity) map[string]any {
	view := map[string]any{
		"id":     id.ID(),
		"email":  id.Email(),
		"domain": id.Domain(),
	}

	if ci, ok := id.(CompanyIdentity); ok && ci.CompanyID() != "" {
		view["company_id"] = ci.CompanyID()
		view["role"] = ci.Role()
	}

	return view
}
