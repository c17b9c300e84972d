package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/google/uuid"
)

const maxSiteSummary = 4000

// campaignAgent holds one call's snapshot of the campaign. Tools act on the
// campaign id; the snapshot is only used to resolve post references and is
// reloaded when the calendar is regenerated.
type campaignAgent struct {
	s        *Service
	actor    models.Actor
	campaign *models.CampaignWithPosts
	website  string
}

func (s *Service) buildCampaign(ctx context.Context, p Persona, userID uuid.UUID, c *models.CampaignWithPosts) (*relay.Prompt, *relay.Registry, error) {
	a := &campaignAgent{s: s, actor: models.AgentActor(userID), campaign: c}

	clients, err := s.deps.Clients.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list clients: %w", err)
	}
	for _, cl := range clients {
		if cl.ID == c.ClientID && cl.Website != nil {
			a.website = *cl.Website
		}
	}

	state := []string{
		"Name: " + c.Name,
		"Client: " + c.ClientName,
		"Status: " + c.Status,
		"Image model: " + c.ImageModel,
	}
	if a.website != "" {
		state = append(state, "Client website: "+a.website)
	}

	instructions := append([]string{}, p.Phases[c.Status]...)
	instructions = append(instructions, p.Instructions...)

	prompt := relay.NewPrompt(p.Persona).
		State("Today", s.now().Format("Monday, 2006-01-02")).
		State("Campaign", state...).
		Facts("Brand info", "Not collected yet.", brandLines(&c.Campaign)...).
		State("Strategy", strategyLines(c.Strategy)...).
		Facts("Posts", "No posts yet.", postLines(c.Posts)...).
		Instructions(instructions...)

	tools := relay.NewRegistry(
		a.analyzeWebsiteTool(),
		a.saveBrandInfoTool(),
		a.saveStrategyTool(),
		a.generateCalendarTool(),
		a.updatePostTool(),
		a.regenerateImageTool(),
	)
	return prompt, tools, nil
}

func brandLines(c *models.Campaign) []string {
	var lines []string
	if c.BrandVoice != nil {
		lines = append(lines, "Brand voice: "+*c.BrandVoice)
	}
	if c.TargetAudience != nil {
		lines = append(lines, "Target audience: "+*c.TargetAudience)
	}
	if len(c.ContentThemes) > 0 {
		lines = append(lines, "Content themes: "+strings.Join(c.ContentThemes, ", "))
	}
	if c.PostsPerWeek != nil {
		lines = append(lines, fmt.Sprintf("Posts per week: %d", *c.PostsPerWeek))
	}
	if c.StartDate != nil || c.EndDate != nil {
		lines = append(lines, fmt.Sprintf("Period: %s to %s", formatDate(c.StartDate), formatDate(c.EndDate)))
	}
	if c.ImageStyle != nil {
		lines = append(lines, "Image style: "+*c.ImageStyle)
	}
	return lines
}

func strategyLines(strategy *string) []string {
	if strategy == nil || strings.TrimSpace(*strategy) == "" {
		return []string{"No strategy saved yet."}
	}
	return []string{strings.TrimSpace(*strategy)}
}

func postLines(posts []models.Post) []string {
	lines := make([]string, 0, len(posts))
	for i, p := range posts {
		when := "unscheduled"
		if p.ScheduledAt != nil {
			when = p.ScheduledAt.UTC().Format("2006-01-02 15:04 UTC")
		}
		image := "no image"
		if p.ImageURL != nil {
			image = "has image"
		}
		line := fmt.Sprintf("#%d [%s] %s, %s, theme %s: %s (id %s)",
			i+1, p.Status, when, image, deref(p.Theme, "none"), shorten(p.Caption, 80), p.ID)
		if p.Status == models.PostStatusFailed && p.Notes != nil {
			line += ", failed: " + shorten(*p.Notes, 120)
		}
		lines = append(lines, line)
	}
	return lines
}

// resolvePost accepts a post id or a 1-based position ("3" or "#3") in the
// calendar listed in the prompt.
func (a *campaignAgent) resolvePost(ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && n >= 1 && n <= len(a.campaign.Posts) {
		return a.campaign.Posts[n-1].ID, nil
	}
	return uuid.Nil, fmt.Errorf("post %q not found, use the post id", ref)
}

type analyzeWebsiteArgs struct {
	URL string `json:"url"`
}

func (a *campaignAgent) analyzeWebsiteTool() relay.Tool {
	return relay.NewTool("analyze_website", "Fetch a website and summarize its title, description, headings and text.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"url": {Type: relay.TypeString, Description: "Defaults to the client website"},
			},
		},
		func(ctx context.Context, args analyzeWebsiteArgs) (string, error) {
			url := strings.TrimSpace(args.URL)
			if url == "" {
				url = a.website
			}
			if url == "" {
				return "", fmt.Errorf("no url given and the client has no website")
			}
			summary, err := a.s.deps.Sites.FetchAndParse(ctx, url)
			if err != nil {
				return "", err
			}
			text := summary.Text()
			if r := []rune(text); len(r) > maxSiteSummary {
				text = string(r[:maxSiteSummary])
			}
			return text, nil
		})
}

type saveBrandInfoArgs struct {
	BrandVoice     string   `json:"brand_voice"`
	TargetAudience string   `json:"target_audience"`
	ContentThemes  []string `json:"content_themes"`
	PostsPerWeek   *int     `json:"posts_per_week"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ImageStyle     string   `json:"image_style"`
}

func (a *campaignAgent) saveBrandInfoTool() relay.Tool {
	return relay.NewTool("save_brand_info", "Save the discovery results and move the campaign to strategy.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"brand_voice":     {Type: relay.TypeString},
				"target_audience": {Type: relay.TypeString},
				"content_themes":  {Type: relay.TypeArray, Items: &relay.Property{Type: relay.TypeString}},
				"posts_per_week":  {Type: relay.TypeInteger},
				"start_date":      {Type: relay.TypeString, Description: "YYYY-MM-DD"},
				"end_date":        {Type: relay.TypeString, Description: "YYYY-MM-DD"},
				"image_style":     {Type: relay.TypeString, Description: "Visual style for generated images"},
			},
			Required: []string{"brand_voice", "target_audience"},
		},
		func(ctx context.Context, args saveBrandInfoArgs) (string, error) {
			start, err := parseDate(args.StartDate)
			if err != nil {
				return "", err
			}
			end, err := parseDate(args.EndDate)
			if err != nil {
				return "", err
			}
			if args.PostsPerWeek != nil && (*args.PostsPerWeek < 1 || *args.PostsPerWeek > 21) {
				return "", fmt.Errorf("posts_per_week must be between 1 and 21")
			}
			info := models.BrandInfo{
				BrandVoice:     optional(args.BrandVoice),
				TargetAudience: optional(args.TargetAudience),
				ContentThemes:  args.ContentThemes,
				PostsPerWeek:   args.PostsPerWeek,
				StartDate:      start,
				EndDate:        end,
				ImageStyle:     optional(args.ImageStyle),
			}
			if err := a.s.deps.Campaigns.SaveBrandInfo(ctx, a.actor, a.campaign.ID, info); err != nil {
				return "", err
			}
			return "Brand info saved. The campaign is now in strategy.", nil
		})
}

type saveStrategyArgs struct {
	Strategy string `json:"strategy"`
}

func (a *campaignAgent) saveStrategyTool() relay.Tool {
	return relay.NewTool("save_strategy", "Save the agreed strategy document.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"strategy": {Type: relay.TypeString, Description: "Full strategy in markdown"},
			},
			Required: []string{"strategy"},
		},
		func(ctx context.Context, args saveStrategyArgs) (string, error) {
			if err := a.s.deps.Campaigns.SaveStrategy(ctx, a.actor, a.campaign.ID, args.Strategy); err != nil {
				return "", err
			}
			return "Strategy saved.", nil
		})
}

type calendarPost struct {
	ScheduledAt string `json:"scheduled_at"`
	Caption     string `json:"caption"`
	Hashtags    string `json:"hashtags"`
	ImagePrompt string `json:"image_prompt"`
	Theme       string `json:"theme"`
}

type generateCalendarArgs struct {
	Posts []calendarPost `json:"posts"`
}

func (a *campaignAgent) generateCalendarTool() relay.Tool {
	return relay.NewTool("generate_content_calendar",
		"Create the full post calendar. Replaces every unpublished post and moves the campaign to approval.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"posts": {
					Type: relay.TypeArray,
					Items: &relay.Property{
						Type: relay.TypeObject,
						Properties: map[string]relay.Property{
							"scheduled_at": {Type: relay.TypeString, Description: "RFC 3339"},
							"caption":      {Type: relay.TypeString},
							"hashtags":     {Type: relay.TypeString, Description: "Space separated, with #"},
							"image_prompt": {Type: relay.TypeString},
							"theme":        {Type: relay.TypeString},
						},
						Required: []string{"scheduled_at", "caption"},
					},
				},
			},
			Required: []string{"posts"},
		},
		func(ctx context.Context, args generateCalendarArgs) (string, error) {
			posts := make([]models.Post, 0, len(args.Posts))
			for i, cp := range args.Posts {
				at, err := parseTimestamp(cp.ScheduledAt)
				if err != nil {
					return "", fmt.Errorf("post %d: %w", i+1, err)
				}
				posts = append(posts, models.Post{
					ScheduledAt: at,
					Caption:     strings.TrimSpace(cp.Caption),
					Hashtags:    strings.TrimSpace(cp.Hashtags),
					ImagePrompt: optional(cp.ImagePrompt),
					Theme:       optional(cp.Theme),
				})
			}
			n, err := a.s.deps.Campaigns.GenerateCalendar(ctx, a.actor, a.campaign.ID, posts)
			if err != nil {
				return "", err
			}
			msg := fmt.Sprintf("Calendar created with %d draft posts. The campaign is now in approval.", n)

			// The old posts are gone, so positions must resolve against the new calendar.
			fresh, err := a.s.deps.Campaigns.Get(ctx, a.campaign.ID)
			if err != nil {
				a.campaign.Posts = nil
				return msg + " Reload the campaign before referring to posts by position.", nil
			}
			a.campaign = fresh
			lines := []string{msg, "New posts:"}
			for i, p := range fresh.Posts {
				lines = append(lines, fmt.Sprintf("#%d id %s", i+1, p.ID))
			}
			return strings.Join(lines, "\n"), nil
		})
}

type updatePostArgs struct {
	PostID      string  `json:"post_id"`
	Caption     *string `json:"caption"`
	Hashtags    *string `json:"hashtags"`
	ImagePrompt *string `json:"image_prompt"`
	ScheduledAt *string `json:"scheduled_at"`
	Theme       *string `json:"theme"`
}

func (a *campaignAgent) updatePostTool() relay.Tool {
	return relay.NewTool("update_post", "Change fields of an unpublished post. Omitted fields stay as they are.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"post_id":      {Type: relay.TypeString, Description: "Post id or calendar position"},
				"caption":      {Type: relay.TypeString},
				"hashtags":     {Type: relay.TypeString},
				"image_prompt": {Type: relay.TypeString},
				"scheduled_at": {Type: relay.TypeString, Description: "RFC 3339"},
				"theme":        {Type: relay.TypeString},
			},
			Required: []string{"post_id"},
		},
		func(ctx context.Context, args updatePostArgs) (string, error) {
			id, err := a.resolvePost(args.PostID)
			if err != nil {
				return "", err
			}
			edit := models.PostEdit{
				Caption:     args.Caption,
				Hashtags:    args.Hashtags,
				ImagePrompt: args.ImagePrompt,
				Theme:       args.Theme,
			}
			if args.ScheduledAt != nil {
				at, err := parseTimestamp(*args.ScheduledAt)
				if err != nil {
					return "", err
				}
				edit.ScheduledAt = at
			}
			if edit == (models.PostEdit{}) {
				return "", fmt.Errorf("nothing to update")
			}
			if err := a.s.deps.Campaigns.EditPost(ctx, a.actor, a.campaign.ID, id, edit); err != nil {
				return "", err
			}
			return fmt.Sprintf("Post %s updated.", id), nil
		})
}

type regenerateImageArgs struct {
	PostID string `json:"post_id"`
	Prompt string `json:"prompt"`
}

func (a *campaignAgent) regenerateImageTool() relay.Tool {
	return relay.NewTool("regenerate_image", "Generate a new image for a post.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"post_id": {Type: relay.TypeString, Description: "Post id or calendar position"},
				"prompt":  {Type: relay.TypeString, Description: "New image prompt, defaults to the stored one"},
			},
			Required: []string{"post_id"},
		},
		func(ctx context.Context, args regenerateImageArgs) (string, error) {
			id, err := a.resolvePost(args.PostID)
			if err != nil {
				return "", err
			}
			url, err := a.s.deps.Campaigns.RegenerateImage(ctx, a.actor, a.campaign.ID, id, optional(args.Prompt))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("New image for post %s: %s", id, url), nil
		})
}
