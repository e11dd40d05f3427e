// Package seed loads churches, members and courses from a YAML file.
//
// Seeding is additive and safe to repeat: existing churches, users and
// courses are matched by slug or email and left as they are, memberships
// are set to the listed role, and sessions are only written for courses
// the run created.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	coursestore "github.com/dalemusser/studyhub/internal/app/store/courses"
	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/studyhub/internal/app/store/workspaces"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File is the top-level seed document.
type File struct {
	Churches []Church `yaml:"churches"`
}

type Church struct {
	Slug    string   `yaml:"slug"`
	Name    string   `yaml:"name"`
	Members []Member `yaml:"members"`
	Courses []Course `yaml:"courses"`
}

type Member struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
}

type Course struct {
	Slug        string    `yaml:"slug"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Status      string    `yaml:"status"`
	Sessions    []Session `yaml:"sessions"`
}

type Session struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
	Status  string `yaml:"status"`
	Content string `yaml:"content"`
}

// Report counts what a run inserted or changed.
type Report struct {
	Churches    int
	Users       int
	Memberships int
	Courses     int
	Sessions    int
}

func (r Report) String() string {
	return fmt.Sprintf("churches=%d users=%d memberships=%d courses=%d sessions=%d",
		r.Churches, r.Users, r.Memberships, r.Courses, r.Sessions)
}

// Parse decodes and validates a seed document. Unknown keys are errors.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, errors.New("seed file is empty")
		}
		return File{}, fmt.Errorf("decode seed: %w", err)
	}
	f.normalize()
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f *File) normalize() {
	for i := range f.Churches {
		c := &f.Churches[i]
		c.Slug = strings.ToLower(strings.TrimSpace(c.Slug))
		for j := range c.Courses {
			c.Courses[j].Slug = strings.ToLower(strings.TrimSpace(c.Courses[j].Slug))
		}
	}
}

func (f File) validate() error {
	var problems []string
	bad := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	seen := map[string]bool{}
	for i, c := range f.Churches {
		slug := c.Slug
		switch {
		case !inputval.IsValidSlug(slug):
			bad("churches[%d]: invalid slug %q", i, c.Slug)
		case workspacestore.IsReserved(slug):
			bad("churches[%d]: slug %q is reserved", i, c.Slug)
		case seen[slug]:
			bad("churches[%d]: duplicate slug %q", i, c.Slug)
		}
		seen[slug] = true

		for j, m := range c.Members {
			if !inputval.IsValidEmail(m.Email) {
				bad("%s.members[%d]: invalid email %q", slug, j, m.Email)
			}
			if _, ok := models.ParseRole(m.Role); !ok {
				bad("%s.members[%d]: unknown role %q", slug, j, m.Role)
			}
		}
		courses := map[string]bool{}
		for j, co := range c.Courses {
			cs := co.Slug
			if !inputval.IsValidSlug(cs) || courses[cs] {
				bad("%s.courses[%d]: invalid or duplicate slug %q", slug, j, co.Slug)
			}
			courses[cs] = true
			if strings.TrimSpace(co.Title) == "" {
				bad("%s.courses[%d]: title is required", slug, j)
			}
			for k, s := range co.Sessions {
				if strings.TrimSpace(s.Title) == "" {
					bad("%s.courses[%d].sessions[%d]: title is required", slug, j, k)
				}
			}
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Apply writes f into db.
func Apply(ctx context.Context, db *mongo.Database, f File, logger *zap.Logger) (Report, error) {
	var rep Report
	workspaces := workspacestore.New(db)
	users := userstore.New(db)
	members := membershipstore.New(db)
	courses := coursestore.New(db)
	sessions := coursesessionstore.New(db)

	for _, c := range f.Churches {
		ws, err := workspaces.LookupSlug(ctx, c.Slug, false)
		if err != nil {
			return rep, fmt.Errorf("lookup %q: %w", c.Slug, err)
		}
		if ws == nil {
			name := c.Name
			if strings.TrimSpace(name) == "" {
				name = c.Slug
			}
			created, err := workspaces.CreateChurch(ctx, name, c.Slug)
			if err != nil {
				return rep, fmt.Errorf("create church %q: %w", c.Slug, err)
			}
			ws = &created
			rep.Churches++
			logger.Info("seeded church", zap.String("workspace", c.Slug))
		}

		for _, m := range c.Members {
			u, created, err := users.FindOrCreateByEmail(ctx, m.Email, m.Name)
			if err != nil {
				return rep, fmt.Errorf("user %q: %w", m.Email, err)
			}
			if created {
				rep.Users++
			}
			role, _ := models.ParseRole(m.Role)
			if err := members.Grant(ctx, ws.ID, u.ID, role); err != nil {
				return rep, fmt.Errorf("grant %q in %q: %w", m.Email, c.Slug, err)
			}
			rep.Memberships++
		}

		for _, co := range c.Courses {
			_, err := courses.GetBySlug(ctx, ws.ID, co.Slug, false)
			if err == nil {
				logger.Info("course exists, skipped", zap.String("workspace", c.Slug), zap.String("course", co.Slug))
				continue
			}
			if !errors.Is(err, coursestore.ErrNotFound) {
				return rep, fmt.Errorf("lookup course %q: %w", co.Slug, err)
			}
			course, err := courses.Create(ctx, ws.ID, coursestore.Input{
				Slug:        co.Slug,
				Title:       co.Title,
				Description: co.Description,
				Status:      co.Status,
			})
			if errors.Is(err, coursestore.ErrDuplicateSlug) {
				// A deleted course still holds the slug.
				logger.Warn("course slug taken by a deleted course, skipped", zap.String("workspace", c.Slug), zap.String("course", co.Slug))
				continue
			}
			if err != nil {
				return rep, fmt.Errorf("create course %q: %w", co.Slug, err)
			}
			rep.Courses++

			for i, s := range co.Sessions {
				if _, err := sessions.Create(ctx, course, coursesessionstore.Input{
					Title:     s.Title,
					Summary:   s.Summary,
					Status:    s.Status,
					SortOrder: (i + 1) * 10,
					Content:   s.Content,
				}); err != nil {
					return rep, fmt.Errorf("create session %q in %q: %w", s.Title, co.Slug, err)
				}
				rep.Sessions++
			}
		}
	}
	return rep, nil
}
