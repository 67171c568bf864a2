package mcpserver

// EntryFormatContract describes the canonical journal entry format that
// LLM consumers should follow when reading or writing entries.
const EntryFormatContract = `# Skriva Entry Format Contract

Every journal entry stored in Skriva follows this structure.

## Structure

One entry per calendar date, stored at ` + "`" + `entries/YYYY/MM/YYYY-MM-DD.md` + "`" + `:

` + "```" + `markdown
---
title: Jan 15, 2025                 # display title; defaults to the formatted date
created_at: 2025-01-15T08:12:03Z    # set on first save, never changes afterwards
modified_at: 2025-01-15T21:40:11Z   # refreshed on every save
tags: [sleep, writing]              # OPTIONAL - lowercase, kebab-case
word_count: 412                     # derived from the body on save
mood_rating: 6                      # OPTIONAL - integer 1..10
ai_reflection:                      # OPTIONAL - attached via attach_reflection
  summary: ...
version: 1                          # header schema version
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **One entry per date.** The date is the identity; there is no separate ID.
2. **Never write the YAML header yourself.** Tools accept the Markdown body
   and metadata as separate arguments; Skriva derives word_count, timestamps,
   and the header layout. A body that starts with ` + "`" + `---` + "`" + ` would be
   misread as a header.
3. **Dates** are ISO-8601 calendar dates (YYYY-MM-DD), validated strictly:
   2023-02-29 is rejected, 2024-02-29 is accepted.
4. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `morning-pages` + "`" + `).
5. **Mood rating** is an integer from 1 (lowest) to 10; omit when unknown.
6. **Reflections** are structured JSON documents, not prose appended to the
   body. Use ` + "`" + `attach_reflection` + "`" + `; never edit the body to add one.
7. **Encoding** is UTF-8. The body is preserved byte for byte, including
   trailing whitespace.

## Example tool sequence

1. ` + "`" + `list_entry_dates` + "`" + ` to see what exists.
2. ` + "`" + `read_entry` + "`" + ` with ` + "`" + `date: 2025-01-15` + "`" + `.
3. ` + "`" + `attach_reflection` + "`" + ` with a JSON object such as
   ` + "`" + `{"summary": "...", "themes": ["rest"], "generated_by": "model-name"}` + "`" + `.
`
