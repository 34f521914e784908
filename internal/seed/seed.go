// Package seed loads reference data (departments, knowledge articles and
// users) from YAML into the database.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

//go:embed default.yaml
var defaultSeed []byte

type File struct {
	Departments []Department `yaml:"departments"`
	Articles    []Article    `yaml:"articles"`
	Users       []User       `yaml:"users"`
}

type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Article struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Solution string   `yaml:"solution"`
	Keywords []string `yaml:"keywords"`
}

type User struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

// Parse decodes a seed file, rejecting unknown fields.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("seed: %w", err)
	}
	return &f, nil
}

// Default returns the built-in seed.
func Default() *File {
	f, err := Parse(bytes.NewReader(defaultSeed))
	if err != nil {
		panic(err)
	}
	return f
}

type Deps struct {
	Departments service.DepartmentServicer
	Knowledge   service.KnowledgeServicer
	Users       service.UserServicer
}

type Result struct {
	Departments int
	Articles    int
	Users       int
	Skipped     int
}

// Apply inserts what is missing. Existing departments, articles with the
// same title and existing usernames are left untouched.
func Apply(ctx context.Context, f *File, d Deps) (Result, error) {
	var res Result
	log := slog.Default().With("component", "seed")
	for _, dep := range f.Departments {
		if _, err := d.Departments.Ensure(ctx, model.Department{Name: dep.Name, Description: dep.Description}); err != nil {
			return res, fmt.Errorf("department %q: %w", dep.Name, err)
		}
		res.Departments++
	}

	existing, err := d.Knowledge.List(ctx)
	if err != nil {
		return res, err
	}
	titles := make(map[string]bool, len(existing))
	for _, a := range existing {
		titles[a.Title] = true
	}
	for _, a := range f.Articles {
		if titles[a.Title] {
			res.Skipped++
			continue
		}
		if _, err := d.Knowledge.Create(ctx, model.KnowledgeArticle{
			Title: a.Title, Category: a.Category, Solution: a.Solution, Keywords: a.Keywords,
		}); err != nil {
			return res, fmt.Errorf("article %q: %w", a.Title, err)
		}
		titles[a.Title] = true
		res.Articles++
	}

	for _, u := range f.Users {
		_, err := d.Users.Create(ctx, service.NewUser{
			Username:   u.Username,
			Password:   u.Password,
			Name:       u.Name,
			Email:      u.Email,
			Role:       model.Role(u.Role),
			Department: u.Department,
		})
		if errors.Is(err, errs.ErrUsernameTaken) {
			log.Info("user exists, skipped", "username", u.Username)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("user %q: %w", u.Username, err)
		}
		res.Users++
	}
	return res, nil
}
