// Package tmdb fetches movie, show and episode details from The Movie
// Database v3 API. It only looks records up by id; the pipeline never
// searches, so a caller that supplies --tmdb gets tag metadata without
// naming the file carefully.
package tmdb
