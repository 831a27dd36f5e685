package env

import "github.com/joho/godotenv"

// Load reads each dotenv file that exists. Variables already present in the
// process environment win, and earlier files win over later ones.
func Load(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = godotenv.Load(p)
	}
}
