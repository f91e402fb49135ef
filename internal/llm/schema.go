package llm

import (
	"github.com/arrmate/arrmate/internal/intent"
)

// ParseToolName is the name of the single tool every command is parsed with.
const ParseToolName = "parse_media_command"

// ParseMediaCommandTool returns the fixed tool schema describing an intent.
func ParseMediaCommandTool() Tool {
	actions := make([]string, 0, len(intent.Actions()))
	for _, a := range intent.Actions() {
		actions = append(actions, string(a))
	}
	mediaTypes := make([]string, 0, len(intent.MediaTypes()))
	for _, m := range intent.MediaTypes() {
		mediaTypes = append(mediaTypes, string(m))
	}

	return Tool{
		Name:        ParseToolName,
		Description: "Extract structured intent from a natural language media management command",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": actions,
					"description": "The action to perform. 'remove' or 'delete' = delete files, 'search' = search for media or releases, " +
						"'add' = add to library, 'upgrade' = look for a better quality release, 'list' = show library items, " +
						"'info' = show details, 'download_subtitle' = fetch subtitles, 'sync_subtitles' = re-sync subtitle library",
				},
				"media_type": map[string]any{
					"type": "string",
					"enum": mediaTypes,
					"description": "Type of media: 'tv' for TV shows/series, 'movie' for films, 'music' for artists/albums, " +
						"'book' for ebooks/authors, 'audiobook' for audio books, 'adult' for adult content",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "The title of the show, movie, artist, author or audiobook. Extract the exact name mentioned.",
				},
				"season": map[string]any{
					"type":        "integer",
					"description": "Season number for TV shows only. Extract if mentioned (e.g., 'season 1' = 1).",
				},
				"episodes": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"description": "Episode numbers for TV shows (e.g., 'episodes 1 and 2' = [1, 2], 'episode 5' = [5]).",
				},
				"criteria": map[string]any{
					"type":        "object",
					"description": "Additional search/filter criteria as key-value pairs",
					"properties": map[string]any{
						intent.CriterionLanguage: map[string]any{
							"type":        "string",
							"description": "Language code (e.g., 'en', 'es') or name (e.g., 'English')",
						},
						intent.CriterionQuality: map[string]any{
							"type":        "string",
							"description": "Quality preference (e.g., '4K', '1080p', 'HD', 'BluRay')",
						},
						intent.CriterionYear: map[string]any{
							"type":        "integer",
							"description": "Release year for disambiguation",
						},
					},
					"additionalProperties": true,
				},
			},
			"required": []string{"action", "media_type"},
		},
	}
}

// SystemPrompt is sent with every parse request.
const SystemPrompt = `You are a media management assistant that extracts structured intent from natural language commands.

Your job is to parse user commands about managing TV shows, movies, music, books, audiobooks and adult content.

Key guidelines:
- Extract the ACTION (remove/delete, search, add, upgrade, list, info, download_subtitle, sync_subtitles)
- Identify the MEDIA TYPE (tv, movie, music, book, audiobook, adult)
- Extract the TITLE exactly as mentioned, without words like "the show" or "the movie"
- For TV shows, extract SEASON and EPISODE numbers if mentioned
- Extract any CRITERIA (language, quality, year, etc.)
- Never invent a title that was not mentioned

Examples:
- "remove episode 1 and 2 of Angel season 1" → action=remove, media_type=tv, title="Angel", season=1, episodes=[1,2]
- "delete season 3 of Lost" → action=remove, media_type=tv, title="Lost", season=3
- "search for an all English version" → action=search, media_type=tv, criteria={language: "English"}
- "add Breaking Bad to my library" → action=add, media_type=tv, title="Breaking Bad"
- "add the movie Dune from 2021" → action=add, media_type=movie, title="Dune", criteria={year: 2021}
- "find 4K version of Blade Runner" → action=search, media_type=movie, title="Blade Runner", criteria={quality: "4K"}
- "upgrade The Office season 2 to 1080p" → action=upgrade, media_type=tv, title="The Office", season=2, criteria={quality: "1080p"}
- "show me all my TV shows" → action=list, media_type=tv
- "tell me about the movie Alien" → action=info, media_type=movie, title="Alien"
- "get Spanish subtitles for Angel season 1 episode 3" → action=download_subtitle, media_type=tv, title="Angel", season=1, episodes=[3], criteria={language: "Spanish"}
- "resync subtitles for my movies" → action=sync_subtitles, media_type=movie

Always use the parse_media_command function to return structured data.`
