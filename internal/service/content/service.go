package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nordscene/boxoffice/internal/cms"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
)

const (
	typeShow   = "shows"
	typeCourse = "courses"
)

var ErrNotFound = errors.New("content not found")

// Fetcher reads editorial copy from the headless CMS.
type Fetcher interface {
	GetEntry(ctx context.Context, contentType, slug string) (*cms.Entry, error)
	ListEntries(ctx context.Context, contentType string) ([]cms.Entry, error)
}

// Catalog supplies the bookable side of each page: price, capacity,
// active flag.
type Catalog interface {
	GetShowBySlug(ctx context.Context, slug string) (*domain.Show, error)
	GetCourseBySlug(ctx context.Context, slug string) (*domain.CourseInstance, error)
	ListShows(ctx context.Context, activeOnly bool) ([]domain.Show, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]domain.CourseInstance, error)
}

type Config struct {
	CacheTTL time.Duration
}

// Service assembles public content pages: editorial copy from the CMS
// joined with the catalog's pricing and scheduling data, cached in
// Redis for hours since copy changes rarely.
type Service struct {
	fetcher Fetcher
	catalog Catalog
	cache   *redisrepo.Cache
	logger  *slog.Logger
	ttl     time.Duration
}

func New(fetcher Fetcher, catalog Catalog, cache *redisrepo.Cache, logger *slog.Logger, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &Service{
		fetcher: fetcher,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		ttl:     cfg.CacheTTL,
	}
}

// ShowPage is a public show detail: copy plus pricing.
type ShowPage struct {
	Slug               string `json:"slug"`
	Title              string `json:"title"`
	Summary            string `json:"summary,omitempty"`
	Body               string `json:"body,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	PriceCents         int    `json:"price_cents"`
	DiscountPriceCents *int   `json:"discount_price_cents,omitempty"`
	ShowID             int64  `json:"show_id"`
}

// CoursePage is a public course detail: copy plus pricing.
type CoursePage struct {
	Slug               string `json:"slug"`
	Title              string `json:"title"`
	Summary            string `json:"summary,omitempty"`
	Body               string `json:"body,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	PriceCents         int    `json:"price_cents"`
	DiscountPriceCents *int   `json:"discount_price_cents,omitempty"`
	CourseID           int64  `json:"course_id"`
}

// GetShow returns the page for one active show.
//
// Returns:
//   - content.ErrNotFound when no active show carries the slug.
func (s *Service) GetShow(ctx context.Context, slug string) (*ShowPage, error) {
	const op = "service.content.GetShow"

	load := func(ctx context.Context) (*ShowPage, error) {
		show, err := s.catalog.GetShowBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !show.Active {
			return nil, repository.ErrTargetNotFound
		}

		page := &ShowPage{
			Slug:               show.Slug,
			Title:              show.Title,
			PriceCents:         show.PriceCents,
			DiscountPriceCents: show.DiscountPriceCents,
			ShowID:             show.ID,
		}
		s.enrichShow(ctx, page)
		return page, nil
	}

	var page *ShowPage
	var err error
	if s.cache != nil {
		page, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyContentShow(slug), s.ttl, load)
	} else {
		page, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return page, nil
}

// GetCourse returns the page for one active course.
//
// Returns:
//   - content.ErrNotFound when no active course carries the slug.
func (s *Service) GetCourse(ctx context.Context, slug string) (*CoursePage, error) {
	const op = "service.content.GetCourse"

	load := func(ctx context.Context) (*CoursePage, error) {
		course, err := s.catalog.GetCourseBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !course.Active {
			return nil, repository.ErrTargetNotFound
		}

		page := &CoursePage{
			Slug:               course.Slug,
			Title:              course.Title,
			PriceCents:         course.PriceCents,
			DiscountPriceCents: course.DiscountPriceCents,
			CourseID:           course.ID,
		}
		s.enrichCourse(ctx, page)
		return page, nil
	}

	var page *CoursePage
	var err error
	if s.cache != nil {
		page, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyContentCourse(slug), s.ttl, load)
	} else {
		page, err = load(ctx)
	}
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return page, nil
}

// ListShows returns the pages for all active shows. A CMS outage
// degrades to catalog data only; the site stays up with plainer pages.
func (s *Service) ListShows(ctx context.Context) ([]ShowPage, error) {
	const op = "service.content.ListShows"

	load := func(ctx context.Context) ([]ShowPage, error) {
		shows, err := s.catalog.ListShows(ctx, true)
		if err != nil {
			return nil, err
		}

		copyBySlug := s.cmsIndex(ctx, typeShow)

		pages := make([]ShowPage, 0, len(shows))
		for _, show := range shows {
			page := ShowPage{
				Slug:               show.Slug,
				Title:              show.Title,
				PriceCents:         show.PriceCents,
				DiscountPriceCents: show.DiscountPriceCents,
				ShowID:             show.ID,
			}
			if e, ok := copyBySlug[show.Slug]; ok {
				page.Summary = e.Summary
				page.Body = e.Body
				page.ImageURL = e.ImageURL
			}
			pages = append(pages, page)
		}
		return pages, nil
	}

	var pages []ShowPage
	var err error
	if s.cache != nil {
		pages, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyContentShowList(), s.ttl, load)
	} else {
		pages, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return pages, nil
}

// ListCourses returns the pages for all active courses.
func (s *Service) ListCourses(ctx context.Context) ([]CoursePage, error) {
	const op = "service.content.ListCourses"

	load := func(ctx context.Context) ([]CoursePage, error) {
		courses, err := s.catalog.ListCourses(ctx, true)
		if err != nil {
			return nil, err
		}

		copyBySlug := s.cmsIndex(ctx, typeCourse)

		pages := make([]CoursePage, 0, len(courses))
		for _, course := range courses {
			page := CoursePage{
				Slug:               course.Slug,
				Title:              course.Title,
				PriceCents:         course.PriceCents,
				DiscountPriceCents: course.DiscountPriceCents,
				CourseID:           course.ID,
			}
			if e, ok := copyBySlug[course.Slug]; ok {
				page.Summary = e.Summary
				page.Body = e.Body
				page.ImageURL = e.ImageURL
			}
			pages = append(pages, page)
		}
		return pages, nil
	}

	var pages []CoursePage
	var err error
	if s.cache != nil {
		pages, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyContentCourseList(), s.ttl, load)
	} else {
		pages, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return pages, nil
}

func (s *Service) enrichShow(ctx context.Context, page *ShowPage) {
	entry, err := s.fetcher.GetEntry(ctx, typeShow, page.Slug)
	if err != nil {
		s.logger.Warn("cms entry unavailable, serving catalog data only",
			"type", typeShow,
			"slug", page.Slug,
			"error", err,
		)
		return
	}
	page.Summary = entry.Summary
	page.Body = entry.Body
	page.ImageURL = entry.ImageURL
}

func (s *Service) enrichCourse(ctx context.Context, page *CoursePage) {
	entry, err := s.fetcher.GetEntry(ctx, typeCourse, page.Slug)
	if err != nil {
		s.logger.Warn("cms entry unavailable, serving catalog data only",
			"type", typeCourse,
			"slug", page.Slug,
			"error", err,
		)
		return
	}
	page.Summary = entry.Summary
	page.Body = entry.Body
	page.ImageURL = entry.ImageURL
}

func (s *Service) cmsIndex(ctx context.Context, contentType string) map[string]cms.Entry {
	entries, err := s.fetcher.ListEntries(ctx, contentType)
	if err != nil {
		s.logger.Warn("cms list unavailable, serving catalog data only",
			"type", contentType,
			"error", err,
		)
		return nil
	}

	idx := make(map[string]cms.Entry, len(entries))
	for _, e := range entries {
		idx[e.Slug] = e
	}
	return idx
}
