package models

import (
	"fmt"
	"strings"
	"time"
)

// Level is a CEFR proficiency level
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists every level in ascending order
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Skill is the language skill a worksheet practises
type Skill string

const (
	SkillReading      Skill = "reading"
	SkillWriting      Skill = "writing"
	SkillListening    Skill = "listening"
	SkillUseOfEnglish Skill = "use-of-english"
	SkillSpeaking     Skill = "speaking"
)

// Skills lists every skill
var Skills = []Skill{SkillReading, SkillWriting, SkillListening, SkillUseOfEnglish, SkillSpeaking}

// ParseLevel parses a level case-insensitively. An empty string yields an empty Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, l := range Levels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// ParseSkill parses a skill. "use of english" and "use_of_english" are accepted
// as spellings of use-of-english.
func ParseSkill(s string) (Skill, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	for _, sk := range Skills {
		if string(sk) == s {
			return sk, nil
		}
	}
	return "", fmt.Errorf("unknown skill %q", s)
}

// Worksheet is a downloadable resource with level and skill metadata
type Worksheet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	Level       Level     `json:"level"`
	Skill       Skill     `json:"skill"`
	CreatedAt   time.Time `json:"createdAt"`
}
