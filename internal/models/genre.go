// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package models

import (
	"fmt"
	"strings"
)

// Genre is a closed vocabulary stored as text in the books table and
// validated in the application layer.
type Genre string

// The full genre vocabulary.
const (
	GenreFiction    Genre = "Fiction"
	GenreNonFiction Genre = "Non-Fiction"
	GenreScience    Genre = "Science"
	GenreHistory    Genre = "History"
	GenreBiography  Genre = "Biography"
	GenreFantasy    Genre = "Fantasy"
	GenreMystery    Genre = "Mystery"
	GenreRomance    Genre = "Romance"
	GenreThriller   Genre = "Thriller"
	GenreChildren   Genre = "Children"
	GenrePoetry     Genre = "Poetry"
	GenrePhilosophy Genre = "Philosophy"
	GenreSelfHelp   Genre = "Self-Help"
	GenreTravel     Genre = "Travel"
	GenreCooking    Genre = "Cooking"
	GenreArt        Genre = "Art"
	GenreReligion   Genre = "Religion"
	GenreBusiness   Genre = "Business"
	GenreHealth     Genre = "Health"
	GenreTechnology Genre = "Technology"
)

// Genres lists every valid genre in display order.
var Genres = []Genre{
	GenreFiction, GenreNonFiction, GenreScience, GenreHistory,
	GenreBiography, GenreFantasy, GenreMystery, GenreRomance,
	GenreThriller, GenreChildren, GenrePoetry, GenrePhilosophy,
	GenreSelfHelp, GenreTravel, GenreCooking, GenreArt,
	GenreReligion, GenreBusiness, GenreHealth, GenreTechnology,
}

var genreIndex = func() map[string]Genre {
	m := make(map[string]Genre, len(Genres))
	for _, g := range Genres {
		m[strings.ToLower(string(g))] = g
	}
	return m
}()

// ParseGenre resolves a genre case-insensitively. The returned Genre
// uses canonical casing.
func ParseGenre(s string) (Genre, error) {
	if g, ok := genreIndex[strings.ToLower(strings.TrimSpace(s))]; ok {
		return g, nil
	}
	return "", fmt.Errorf("unknown genre %q", s)
}

// Valid reports whether g is part of the vocabulary.
func (g Genre) Valid() bool {
	_, ok := genreIndex[strings.ToLower(string(g))]
	return ok
}
