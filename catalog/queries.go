package catalog

// GROQ 查询
const (
	ritualProjection = `{
  "id": _id,
  title,
  "slug": slug.current,
  releaseDate,
  description,
  "coverImage": coverImage.asset->url,
  audioUrl,
  emotionalPhase,
  ritualText,
  syncedLyrics[]{time, text},
  "loreConnections": loreConnection[]->slug.current,
  featured,
  "primaryColor": coverImage.asset->metadata.palette.vibrant.background,
  "secondaryColor": coverImage.asset->metadata.palette.dominant.background,
  "vibrantColor": coverImage.asset->metadata.palette.vibrant.background,
  "darkVibrantColor": coverImage.asset->metadata.palette.darkVibrant.background,
  "lightVibrantColor": coverImage.asset->metadata.palette.lightVibrant.background,
  "mutedColor": coverImage.asset->metadata.palette.muted.background,
  "darkMutedColor": coverImage.asset->metadata.palette.darkMuted.background,
  "lightMutedColor": coverImage.asset->metadata.palette.lightMuted.background
}`

	ritualsQuery      = `*[_type == "ritual"] | order(releaseDate desc) ` + ritualProjection
	ritualBySlugQuery = `*[_type == "ritual" && slug.current == $slug][0] ` + ritualProjection

	loreQuery = `*[_type == "lore"] {
  "id": _id,
  title,
  "slug": slug.current,
  content,
  constellation,
  timestamp,
  "connectedRituals": connectedRituals[]->{"id": _id, title, "slug": slug.current},
  "connectedLore": connectedLore[]->{"id": _id, title, "slug": slug.current}
}`

	siteSettingsQuery = `*[_id == "siteSettings"][0] {
  title,
  heroTagline,
  heroSubtitle,
  heroDescription,
  heroDividerText,
  ctaPrimaryLabel,
  ctaPrimaryLink,
  ctaSecondaryLabel,
  ritualsHeading,
  ritualsSubtext,
  footerQuote,
  footerCopyright
}`

	pageByPageIDQuery = `*[_type == "pageContent" && pageId == $pageId][0] {
  pageId,
  title,
  metaDescription,
  label,
  openingQuote,
  sections[]{_key, heading, body},
  pullQuotes[]{_key, text, position},
  closingText
}`
)
