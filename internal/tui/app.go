package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/player"
	"github.com/tako-tv/tako/internal/progress"
	"github.com/tako-tv/tako/internal/search"
)

// ApplicationState represents the current view of the application
type ApplicationState int

const (
	StateHome ApplicationState = iota
	StateMovies
	StateSeries
	StateEpisodes
	StateDetail
	StateSearching
	StateResults
)

// videoItem adapts a domain.Video for the bubbles list
type videoItem struct {
	video domain.Video
}

func (i videoItem) Title() string {
	if code := i.video.EpisodeCode(); code != "" {
		return fmt.Sprintf("%s %s", code, i.video.Name)
	}
	return i.video.Name
}

func (i videoItem) Description() string {
	parts := []string{}
	if i.video.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", i.video.Year))
	}
	if i.video.Rating != "" {
		parts = append(parts, i.video.Rating)
	}
	if i.video.Vote > 0 {
		parts = append(parts, fmt.Sprintf("%d%%", i.video.Vote))
	}
	return strings.Join(parts, " · ")
}

func (i videoItem) FilterValue() string { return i.video.Name }

// seriesItem adapts a domain.Series for the bubbles list
type seriesItem struct {
	series domain.Series
}

func (i seriesItem) Title() string { return i.series.Name }
func (i seriesItem) Description() string {
	return fmt.Sprintf("%d seasons · %d episodes", i.series.SeasonCount, i.series.EpisodeCount)
}
func (i seriesItem) FilterValue() string { return i.series.Name }

// Model is the main Bubble Tea model for the application
type Model struct {
	state    ApplicationState
	prev     ApplicationState
	repo     domain.VideoRepository
	searcher *search.Service
	rec      *progress.Reconciler
	launcher *player.Launcher
	logger   *slog.Logger

	syncInterval time.Duration

	// Home
	groups   []domain.VideoGroup
	shelf    int // selected shelf row
	shelfPos map[int]int

	// Lists
	movieList   list.Model
	seriesList  list.Model
	episodeList list.Model
	resultList  list.Model

	// Detail
	detail *domain.Detail

	// Search
	input textinput.Model

	spinner   spinner.Model
	loading   bool
	statusMsg string
	statusErr bool
	width     int
	height    int
}

// NewModel creates the application model
func NewModel(repo domain.VideoRepository, searcher *search.Service, rec *progress.Reconciler, launcher *player.Launcher, syncInterval time.Duration, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	input := textinput.New()
	input.Placeholder = "Search movies and shows"
	input.CharLimit = 80

	newList := func(title string) list.Model {
		l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
		l.Title = title
		l.SetShowHelp(false)
		return l
	}

	return Model{
		state:        StateHome,
		repo:         repo,
		searcher:     searcher,
		rec:          rec,
		launcher:     launcher,
		logger:       logger,
		syncInterval: syncInterval,
		shelfPos:     make(map[int]int),
		movieList:    newList("Movies"),
		seriesList:   newList("TV Shows"),
		episodeList:  newList("Episodes"),
		resultList:   newList("Results"),
		input:        input,
		spinner:      sp,
		loading:      true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		LoadHomeCmd(m.repo, m.rec),
		SyncCmd(m.rec),
	}
	if m.syncInterval > 0 {
		cmds = append(cmds, SyncTickCmd(m.syncInterval))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := docStyle.GetFrameSize()
		for _, l := range []*list.Model{&m.movieList, &m.seriesList, &m.episodeList, &m.resultList} {
			l.SetSize(msg.Width-h, msg.Height-v-2)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ErrMsg:
		m.loading = false
		m.statusMsg = fmt.Sprintf("%s: %v", msg.Context, msg.Err)
		m.statusErr = true
		m.logger.Warn("operation failed", "context", msg.Context, "error", msg.Err)
		return m, nil

	case HomeLoadedMsg:
		m.loading = false
		m.groups = nil
		if len(msg.ContinueWatching) > 0 {
			m.groups = append(m.groups, domain.VideoGroup{Category: "Continue Watching", Videos: msg.ContinueWatching})
		}
		m.groups = append(m.groups, msg.Groups...)
		if m.shelf >= len(m.groups) {
			m.shelf = 0
		}
		return m, nil

	case MoviesLoadedMsg:
		m.loading = false
		m.searcher.Index(msg.Videos)
		items := make([]list.Item, len(msg.Videos))
		for i, v := range msg.Videos {
			items[i] = videoItem{video: v}
		}
		return m, m.movieList.SetItems(items)

	case SeriesLoadedMsg:
		m.loading = false
		items := make([]list.Item, len(msg.Series))
		for i, s := range msg.Series {
			items[i] = seriesItem{series: s}
			m.searcher.Index(s.Episodes)
		}
		return m, m.seriesList.SetItems(items)

	case DetailLoadedMsg:
		m.loading = false
		m.detail = msg.Detail
		m.prev = m.state
		m.state = StateDetail
		return m, nil

	case ProfileLoadedMsg:
		m.loading = false
		p := msg.Profile
		m.resultList.Title = p.Person.Name
		var items []list.Item
		for _, v := range p.Videos {
			items = append(items, videoItem{video: v})
		}
		for _, s := range p.Series {
			for _, e := range s.Episodes {
				items = append(items, videoItem{video: e})
			}
		}
		m.prev = m.state
		m.state = StateResults
		return m, m.resultList.SetItems(items)

	case SearchResultsMsg:
		m.loading = false
		m.state = StateResults
		m.resultList.Title = fmt.Sprintf("Results for %q", msg.Query)
		items := make([]list.Item, len(msg.Videos))
		for i, v := range msg.Videos {
			items[i] = videoItem{video: v}
		}
		return m, m.resultList.SetItems(items)

	case PlaybackFinishedMsg:
		m.statusMsg = "Stopped " + msg.Video.Name
		m.statusErr = false
		if m.state == StateHome {
			// Refresh the continue-watching row with the new position.
			return m, LoadHomeCmd(m.repo, m.rec)
		}
		return m, nil

	case SyncDoneMsg:
		if msg.Err != nil {
			m.logger.Warn("progress sync failed", "error", msg.Err)
		}
		return m, nil

	case SyncTickMsg:
		cmds := []tea.Cmd{SyncCmd(m.rec)}
		if m.syncInterval > 0 {
			cmds = append(cmds, SyncTickCmd(m.syncInterval))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActive(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case StateMovies:
		m.movieList, cmd = m.movieList.Update(msg)
	case StateSeries:
		m.seriesList, cmd = m.seriesList.Update(msg)
	case StateEpisodes:
		m.episodeList, cmd = m.episodeList.Update(msg)
	case StateResults:
		m.resultList, cmd = m.resultList.Update(msg)
	case StateSearching:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search input swallows everything except enter/esc
	if m.state == StateSearching {
		switch msg.String() {
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				m.state = m.prev
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, SearchCmd(m.searcher, query))
		case "esc":
			m.state = m.prev
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "q":
		if m.state == StateHome {
			return m, tea.Quit
		}
		m.state = m.back()
		return m, nil

	case "esc":
		m.state = m.back()
		return m, nil

	case "/":
		m.prev = m.state
		m.state = StateSearching
		m.input.SetValue("")
		return m, m.input.Focus()

	case "1":
		m.state = StateHome
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, LoadHomeCmd(m.repo, m.rec))

	case "2":
		m.state = StateMovies
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, LoadMoviesCmd(m.repo, false))

	case "3":
		m.state = StateSeries
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, LoadSeriesCmd(m.repo, false))

	case "R":
		m.loading = true
		m.searcher.ClearIndex()
		switch m.state {
		case StateSeries:
			return m, tea.Batch(m.spinner.Tick, LoadSeriesCmd(m.repo, true))
		default:
			return m, tea.Batch(m.spinner.Tick, LoadMoviesCmd(m.repo, true))
		}

	case "s":
		return m, SyncCmd(m.rec)
	}

	switch m.state {
	case StateHome:
		return m.handleHomeKey(msg)
	case StateDetail:
		return m.handleDetailKey(msg)
	default:
		switch msg.String() {
		case "enter":
			if v, ok := m.selectedVideo(); ok {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, LoadDetailCmd(m.repo, v.ID))
			}
			if s, ok := m.selectedSeries(); ok {
				items := make([]list.Item, len(s.Episodes))
				for i, e := range s.Episodes {
					items[i] = videoItem{video: e}
				}
				m.episodeList.Title = s.Name
				m.state = StateEpisodes
				return m, m.episodeList.SetItems(items)
			}
			return m, nil
		case "p":
			if v, ok := m.selectedVideo(); ok {
				m.statusMsg = "Playing " + v.Name
				m.statusErr = false
				return m, PlayCmd(m.repo, m.rec, m.launcher, v, true)
			}
		}
	}

	return m.updateActive(msg)
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.groups) == 0 {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.shelf > 0 {
			m.shelf--
		}
	case "down", "j":
		if m.shelf < len(m.groups)-1 {
			m.shelf++
		}
	case "left", "h":
		if m.shelfPos[m.shelf] > 0 {
			m.shelfPos[m.shelf]--
		}
	case "right", "l":
		if m.shelfPos[m.shelf] < len(m.groups[m.shelf].Videos)-1 {
			m.shelfPos[m.shelf]++
		}
	case "enter":
		v := m.groups[m.shelf].Videos[m.shelfPos[m.shelf]]
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, LoadDetailCmd(m.repo, v.ID))
	case "p":
		v := m.groups[m.shelf].Videos[m.shelfPos[m.shelf]]
		m.statusMsg = "Playing " + v.Name
		m.statusErr = false
		return m, PlayCmd(m.repo, m.rec, m.launcher, v, true)
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail == nil {
		return m, nil
	}
	switch msg.String() {
	case "enter", "p":
		m.statusMsg = "Playing " + m.detail.Video.Name
		m.statusErr = false
		return m, PlayCmd(m.repo, m.rec, m.launcher, m.detail.Video, true)
	case "P":
		// Play from the beginning
		m.statusMsg = "Playing " + m.detail.Video.Name
		m.statusErr = false
		return m, PlayCmd(m.repo, m.rec, m.launcher, m.detail.Video, false)
	case "c":
		if len(m.detail.Cast) > 0 {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, LoadProfileCmd(m.repo, m.detail.Cast[0].Person.ID))
		}
	}
	return m, nil
}

func (m Model) back() ApplicationState {
	switch m.state {
	case StateDetail, StateResults:
		return m.prev
	case StateEpisodes:
		return StateSeries
	default:
		return StateHome
	}
}

func (m Model) selectedVideo() (domain.Video, bool) {
	var l *list.Model
	switch m.state {
	case StateMovies:
		l = &m.movieList
	case StateEpisodes:
		l = &m.episodeList
	case StateResults:
		l = &m.resultList
	default:
		return domain.Video{}, false
	}
	if item, ok := l.SelectedItem().(videoItem); ok {
		return item.video, true
	}
	return domain.Video{}, false
}

func (m Model) selectedSeries() (domain.Series, bool) {
	if m.state != StateSeries {
		return domain.Series{}, false
	}
	if item, ok := m.seriesList.SelectedItem().(seriesItem); ok {
		return item.series, true
	}
	return domain.Series{}, false
}

func (m Model) View() string {
	var body string
	switch m.state {
	case StateHome:
		body = m.viewHome()
	case StateMovies:
		body = m.movieList.View()
	case StateSeries:
		body = m.seriesList.View()
	case StateEpisodes:
		body = m.episodeList.View()
	case StateResults:
		body = m.resultList.View()
	case StateDetail:
		body = m.viewDetail()
	case StateSearching:
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Search"),
			"",
			m.input.View(),
		)
	}

	footer := m.viewFooter()
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))
}

func (m Model) viewHome() string {
	if len(m.groups) == 0 {
		if m.loading {
			return m.spinner.View() + " Loading..."
		}
		return dimStyle.Render("Nothing here yet. Press R to refresh.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Tako"))
	b.WriteString("\n\n")

	for gi, g := range m.groups {
		title := g.Category
		if gi == m.shelf {
			title = shelfTitleStyle.Render("» " + title)
		} else {
			title = dimStyle.Render("  " + title)
		}
		b.WriteString(title)
		b.WriteString("\n")

		var row []string
		for vi, v := range g.Videos {
			name := v.Name
			if code := v.EpisodeCode(); code != "" {
				name = code + " " + name
			}
			if gi == m.shelf && vi == m.shelfPos[gi] {
				row = append(row, selectedStyle.Render("["+name+"]"))
			} else {
				row = append(row, dimStyle.Render(name))
			}
		}
		b.WriteString("  " + strings.Join(row, "  "))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) viewDetail() string {
	d := m.detail
	if d == nil {
		return ""
	}
	v := d.Video

	var b strings.Builder
	title := v.Name
	if code := v.EpisodeCode(); code != "" {
		title = fmt.Sprintf("%s · %s", code, title)
	}
	b.WriteString(detailHeaderStyle.Render(title))
	b.WriteString("\n")

	var meta []string
	if v.Year > 0 {
		meta = append(meta, fmt.Sprintf("%d", v.Year))
	}
	if v.Rating != "" {
		meta = append(meta, v.Rating)
	}
	if v.Vote > 0 {
		meta = append(meta, fmt.Sprintf("%d%%", v.Vote))
	}
	if len(d.Genres) > 0 {
		meta = append(meta, strings.Join(d.Genres, ", "))
	}
	b.WriteString(dimStyle.Render(strings.Join(meta, " · ")))
	b.WriteString("\n\n")

	if v.Tagline != "" {
		b.WriteString(dimStyle.Render(v.Tagline))
		b.WriteString("\n\n")
	}
	b.WriteString(v.Description)
	b.WriteString("\n")

	if len(d.Cast) > 0 {
		var names []string
		for i, c := range d.Cast {
			if i >= 6 {
				break
			}
			names = append(names, c.Person.Name)
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Cast: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}

	if resume := m.rec.Resume(v.ID); resume > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("Resume from %s (enter) · play from start (P)", resume.Round(time.Second))))
	}
	return b.String()
}

func (m Model) viewFooter() string {
	if m.loading {
		return statusStyle.Render(m.spinner.View() + " loading")
	}
	if m.statusMsg != "" {
		if m.statusErr {
			return errorStyle.Render(m.statusMsg)
		}
		return statusStyle.Render(m.statusMsg)
	}
	return statusStyle.Render("1 home · 2 movies · 3 shows · / search · p play · s sync · q quit")
}
