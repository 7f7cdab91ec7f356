package main

// General API documentation for swaggo. The generated document lives in
// internal/httpapi/docs and is served with -tags=swagger.
//
// @title           modelsync API
// @version         1.0
// @description     Local API over the live model registry of an image generation backend.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
