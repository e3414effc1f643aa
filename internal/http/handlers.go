package http

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/energia/energia-dashboard/internal/domain"
	"github.com/energia/energia-dashboard/internal/report"
	"github.com/energia/energia-dashboard/internal/service"
	"github.com/energia/energia-dashboard/internal/session"
)

type handlers struct {
	svcs     *service.Services
	sessions Sessions
	opts     Options
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	return nil
}

// Auth

type sessionView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *handlers) login(c *fiber.Ctx) error {
	var creds domain.Credentials
	if err := bind(c, &creds); err != nil {
		return err
	}
	if err := service.Validate(creds); err != nil {
		return err
	}
	s, token, err := h.sessions.Login(c.UserContext(), creds)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(sessionView{Username: s.Username, Role: s.Role, ExpiresAt: s.ExpiresAt})
}

// logout always clears the cookie; one that no longer verifies (garbage, or
// signed with a rotated secret) names no session to delete.
func (h *handlers) logout(c *fiber.Ctx) error {
	c.ClearCookie(h.opts.CookieName)
	if token := c.Cookies(h.opts.CookieName); token != "" {
		err := h.sessions.Logout(c.UserContext(), token)
		if err != nil && !errors.Is(err, session.ErrInvalidToken) {
			return err
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) me(c *fiber.Ctx) error {
	s := currentSession(c)
	return c.JSON(sessionView{Username: s.Username, Role: s.Role, ExpiresAt: s.ExpiresAt})
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	o, err := h.svcs.Dashboard.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(o)
}

// Matrizes

func (h *handlers) listGenerators(c *fiber.Ctx) error {
	out, err := h.svcs.Generators.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) getGenerator(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	g, err := h.svcs.Generators.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(g)
}

func (h *handlers) createGenerator(c *fiber.Ctx) error {
	var g domain.Generator
	if err := bind(c, &g); err != nil {
		return err
	}
	out, err := h.svcs.Generators.Create(c.UserContext(), g)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *handlers) updateGenerator(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var g domain.Generator
	if err := bind(c, &g); err != nil {
		return err
	}
	out, err := h.svcs.Generators.Update(c.UserContext(), id, g)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) deleteGenerator(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svcs.Generators.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) generatorSummary(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	s, err := h.svcs.Generators.Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *handlers) generatorDependents(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.svcs.Generators.Dependents(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Filiais

func (h *handlers) listDependents(c *fiber.Ctx) error {
	out, err := h.svcs.Dependents.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) dependentsByGenerator(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.svcs.Dependents.ByGenerator(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) getDependent(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	d, err := h.svcs.Dependents.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *handlers) createDependent(c *fiber.Ctx) error {
	var d domain.DependentUnit
	if err := bind(c, &d); err != nil {
		return err
	}
	out, err := h.svcs.Dependents.Create(c.UserContext(), d)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *handlers) updateDependent(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var d domain.DependentUnit
	if err := bind(c, &d); err != nil {
		return err
	}
	out, err := h.svcs.Dependents.Update(c.UserContext(), id, d)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) deleteDependent(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svcs.Dependents.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) dependentEnergy(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	e, err := h.svcs.Dependents.Energy(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(e)
}

// Users

func (h *handlers) listUsers(c *fiber.Ctx) error {
	out, err := h.svcs.Users.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) getUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	u, err := h.svcs.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (h *handlers) createUser(c *fiber.Ctx) error {
	var u domain.User
	if err := bind(c, &u); err != nil {
		return err
	}
	out, err := h.svcs.Users.Create(c.UserContext(), u)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *handlers) updateUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var u domain.User
	if err := bind(c, &u); err != nil {
		return err
	}
	out, err := h.svcs.Users.Update(c.UserContext(), id, u)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) deleteUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svcs.Users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) userFiles(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.svcs.Users.Files(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) uploadFile(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fh.Size > h.svcs.Files.MaxBytes() {
		return service.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := h.svcs.Files.Upload(c.UserContext(), id, fh.Filename, f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Files

func (h *handlers) listFiles(c *fiber.Ctx) error {
	out, err := h.svcs.Files.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) filesByUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.svcs.Files.ByUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (h *handlers) getFile(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	f, err := h.svcs.Files.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (h *handlers) deleteFile(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svcs.Files.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) downloadFile(c *fiber.Ctx) error { return h.sendFile(c, false) }
func (h *handlers) viewFile(c *fiber.Ctx) error     { return h.sendFile(c, true) }

func (h *handlers) sendFile(c *fiber.Ctx, inline bool) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	dl, err := h.svcs.Files.Open(c.UserContext(), id, inline)
	if err != nil {
		return err
	}
	if dl.ContentType != "" {
		c.Set(fiber.HeaderContentType, dl.ContentType)
	}
	c.Set(fiber.HeaderContentDisposition, dl.ContentDisposition)
	size := -1
	if dl.Size >= 0 {
		size = int(dl.Size)
	}
	// fasthttp closes the body once it has been written.
	return c.SendStream(dl.Body, size)
}

// Reports

func (h *handlers) report(c *fiber.Ctx) error {
	r, err := h.svcs.Reports.Build(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *handlers) exportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.svcs.Reports.WriteCSV(c.UserContext(), &buf); err != nil {
		return err
	}
	c.Attachment(report.Filename)
	c.Set(fiber.HeaderContentType, report.ContentType)
	return c.Send(buf.Bytes())
}

func (h *handlers) archiveReport(c *fiber.Ctx) error {
	res, err := h.svcs.Reports.Archive(c.UserContext(), currentSession(c).Username)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *handlers) reportHistory(c *fiber.Ctx) error {
	runs, err := h.svcs.Reports.History(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(runs)
}
