package domain

// LevelFor derives a student's level from accumulated XP. Every 100 XP is one
// level, starting at level 1. This is the only place level is computed; stored
// levels are always the output of this function.
func LevelFor(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/100 + 1
}
