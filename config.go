package main

import (
	"bufio"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	SaveDirectory   string
	MaxHistory      int
	MaxDimension    int
	ThumbnailWidth  int
	OCRLanguages    []string
	PdftoppmPath    string
	FontPath        string
	PDFDPI          int
	OCRFontScale    float64
	ExportFontScale float64
	Confirmations   bool
}

func defaultConfig() *Config {
	return &Config{
		MaxHistory:      defaultMaxHistory,
		MaxDimension:    defaultMaxDimension,
		ThumbnailWidth:  defaultThumbnailWidth,
		OCRLanguages:    []string{"jpn", "eng"},
		PdftoppmPath:    "pdftoppm",
		PDFDPI:          150,
		OCRFontScale:    ocrFontScale,
		ExportFontScale: exportFontScale,
		Confirmations:   true,
	}
}

// loadConfig reads ~/.slidemaskrc on top of the defaults. A missing file is
// not an error.
func loadConfig() *Config {
	config := defaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config
	}

	file, err := os.Open(filepath.Join(homeDir, ".slidemaskrc"))
	if err != nil {
		return config
	}
	defer file.Close()

	config.parse(file, homeDir)
	return config
}

func (c *Config) parse(r io.Reader, homeDir string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch strings.ToLower(key) {
		case "savedirectory", "save_directory", "savedir":
			c.SaveDirectory = expandPath(value, homeDir)
		case "maxhistory", "max_history", "history":
			c.MaxHistory = parsePositiveInt(key, value, c.MaxHistory)
		case "maxdimension", "max_dimension":
			c.MaxDimension = parsePositiveInt(key, value, c.MaxDimension)
		case "thumbnailwidth", "thumbnail_width":
			c.ThumbnailWidth = parsePositiveInt(key, value, c.ThumbnailWidth)
		case "ocrlanguages", "ocr_languages", "languages":
			if langs := splitLanguages(value); len(langs) > 0 {
				c.OCRLanguages = langs
			}
		case "fontpath", "font_path", "font":
			c.FontPath = expandPath(value, homeDir)
		case "pdftoppm":
			c.PdftoppmPath = expandPath(value, homeDir)
		case "pdfdpi", "pdf_dpi", "dpi":
			c.PDFDPI = parsePositiveInt(key, value, c.PDFDPI)
		case "ocrfontscale", "ocr_font_scale":
			c.OCRFontScale = parsePositiveFloat(key, value, c.OCRFontScale)
		case "exportfontscale", "export_font_scale":
			c.ExportFontScale = parsePositiveFloat(key, value, c.ExportFontScale)
		case "confirmations", "confirm":
			c.Confirmations = strings.ToLower(value) == "true"
		default:
			log.Printf("config: unknown key %q", key)
		}
	}
}

func expandPath(value, homeDir string) string {
	if strings.HasPrefix(value, "~") && homeDir != "" {
		value = filepath.Join(homeDir, strings.TrimPrefix(value, "~"))
	}
	if strings.ContainsRune(value, os.PathSeparator) && !filepath.IsAbs(value) {
		if absPath, err := filepath.Abs(value); err == nil {
			value = absPath
		}
	}
	return value
}

func parsePositiveInt(key, value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("config: ignoring %s=%q", key, value)
		return fallback
	}
	return n
}

func parsePositiveFloat(key, value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		log.Printf("config: ignoring %s=%q", key, value)
		return fallback
	}
	return f
}

// GetSavePath places filename in the configured save directory, if any.
func (c *Config) GetSavePath(filename string) string {
	if c.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename
	}
	if err := os.MkdirAll(c.SaveDirectory, 0755); err != nil {
		log.Printf("config: create save directory: %v", err)
		return filename
	}
	return filepath.Join(c.SaveDirectory, filename)
}
