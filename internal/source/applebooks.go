// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/marginalia/internal/epubcfi"
	"github.com/pdiddy/marginalia/pkg/types"
)

const (
	booksDatabase       = "BKLibrary"
	annotationsDatabase = "AEAnnotation"

	// appleEpoch is 2001-01-01T00:00:00Z in Unix seconds. Apple Books stores
	// timestamps as float seconds since then.
	appleEpoch = 978307200
)

const booksQuery = `SELECT
	ZBKLIBRARYASSET.ZTITLE,
	ZBKLIBRARYASSET.ZAUTHOR,
	ZBKLIBRARYASSET.ZASSETID,
	ZBKLIBRARYASSET.ZLASTOPENDATE
FROM ZBKLIBRARYASSET
ORDER BY ZBKLIBRARYASSET.ZTITLE`

const annotationsQuery = `SELECT
	ZANNOTATIONSELECTEDTEXT,
	ZANNOTATIONNOTE,
	ZANNOTATIONSTYLE,
	ZANNOTATIONUUID,
	ZAEANNOTATION.ZANNOTATIONASSETID,
	ZANNOTATIONCREATIONDATE,
	ZANNOTATIONMODIFICATIONDATE,
	ZANNOTATIONLOCATION
FROM ZAEANNOTATION
WHERE ZANNOTATIONSELECTEDTEXT IS NOT NULL
	AND ZANNOTATIONDELETED = 0
ORDER BY ZANNOTATIONASSETID`

var styles = map[int64]string{
	0: "underline",
	1: "green",
	2: "blue",
	3: "yellow",
	4: "pink",
	5: "purple",
}

// AppleBooks reads the Apple Books library and annotation databases found
// under Dir/BKLibrary and Dir/AEAnnotation. Both are opened read-only.
type AppleBooks struct {
	Dir string
}

// Load joins annotations to their books. Books without annotations and
// annotations whose book is missing are dropped.
func (a *AppleBooks) Load(ctx context.Context) ([]types.Entry, error) {
	books, err := a.books(ctx)
	if err != nil {
		return nil, err
	}
	annotations, err := a.annotations(ctx)
	if err != nil {
		return nil, err
	}

	byBook := make(map[string][]types.Annotation)
	for _, an := range annotations {
		byBook[an.BookID] = append(byBook[an.BookID], an)
	}

	var entries []types.Entry
	for _, b := range books {
		anns, ok := byBook[b.ID]
		if !ok {
			continue
		}
		entries = append(entries, types.Entry{Book: b, Annotations: anns})
	}
	return entries, nil
}

func (a *AppleBooks) books(ctx context.Context) ([]types.Book, error) {
	db, err := a.open(booksDatabase)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, booksQuery)
	if err != nil {
		return nil, fmt.Errorf("querying %s (unsupported Apple Books version?): %w", booksDatabase, err)
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		var (
			title, author, id sql.NullString
			lastOpened        sql.NullFloat64
		)
		if err := rows.Scan(&title, &author, &id, &lastOpened); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		if !id.Valid {
			continue
		}
		books = append(books, types.Book{
			Title:      title.String,
			Author:     author.String,
			ID:         id.String,
			LastOpened: appleTime(lastOpened),
		})
	}
	return books, rows.Err()
}

func (a *AppleBooks) annotations(ctx context.Context) ([]types.Annotation, error) {
	db, err := a.open(annotationsDatabase)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, annotationsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying %s (unsupported Apple Books version?): %w", annotationsDatabase, err)
	}
	defer rows.Close()

	var out []types.Annotation
	for rows.Next() {
		var (
			body, notes, id, bookID, cfi sql.NullString
			style                        sql.NullInt64
			created, modified            sql.NullFloat64
		)
		if err := rows.Scan(&body, &notes, &style, &id, &bookID, &created, &modified, &cfi); err != nil {
			return nil, fmt.Errorf("scanning annotation: %w", err)
		}
		out = append(out, types.Annotation{
			Body:     body.String,
			Notes:    notes.String,
			Style:    styles[style.Int64],
			ID:       id.String,
			BookID:   bookID.String,
			Created:  appleTime(created),
			Modified: appleTime(modified),
			Location: epubcfi.Location(cfi.String),
		})
	}
	return out, rows.Err()
}

// open finds the single name*.sqlite file under Dir/name and opens it
// read-only.
func (a *AppleBooks) open(name string) (*sql.DB, error) {
	matches, err := filepath.Glob(filepath.Join(a.Dir, name, name+"*.sqlite"))
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		sort.Strings(matches)
		return nil, fmt.Errorf("expected exactly one %s database under %s, found %d %v",
			name, filepath.Join(a.Dir, name), len(matches), matches)
	}

	db, err := sql.Open("sqlite3", "file:"+matches[0]+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", matches[0], err)
	}
	return db, nil
}

func appleTime(v sql.NullFloat64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	sec, frac := math.Modf(v.Float64)
	return time.Unix(appleEpoch+int64(sec), int64(frac*1e9)).UTC()
}
