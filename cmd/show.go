package cmd

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/adapters/preview"
	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
)

// showRenderBound is the largest side decoded for terminal display
const showRenderBound = 640

var showStored bool

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "View assets in the terminal",
	Long: `Render assets in the terminal using half-block characters.

The source is decoded and tone mapped with the configured curve. Press
tab to switch to the stored preview, ←/→ (or h/l) to step through the
catalog and q to quit. Without an id the viewer starts at the first
asset in the default sort order.

Examples:
  hx show 7
  hx show --stored`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showStored, "stored", false, "Start with the stored preview instead of the source")
}

func runShow(cmd *cobra.Command, args []string) error {
	resp, err := listService.Execute(getContext(), services.ListRequest{})
	if err != nil {
		return err
	}
	if resp.Total == 0 {
		return fmt.Errorf("no assets in the catalog")
	}

	start := 0
	if len(args) > 0 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		start = -1
		for i, a := range resp.Assets {
			if a.ID == id {
				start = i
				break
			}
		}
		if start < 0 {
			return domain.AssetNotFound("show", id)
		}
	}

	opts := previewOptions(appConfig)
	opts.MaxWidth, opts.MaxHeight = showRenderBound, showRenderBound

	view, err := NewImageView(resp.Assets, start, preview.NewGenerator(opts))
	if err != nil {
		return err
	}
	view.stored = showStored
	return view.Run()
}

// ImageView is a full-screen tcell viewer over a list of assets
type ImageView struct {
	assets    []domain.Asset
	current   int
	generator *preview.Generator
	cache     map[string]*image.NRGBA
	errs      map[string]error
	stored    bool
	screen    tcell.Screen
	width     int
	height    int
}

// NewImageView creates a viewer starting at assets[start]
func NewImageView(assets []domain.Asset, start int, gen *preview.Generator) (*ImageView, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}

	if err := screen.Init(); err != nil {
		return nil, err
	}

	width, height := screen.Size()

	return &ImageView{
		assets:    assets,
		current:   start,
		generator: gen,
		cache:     make(map[string]*image.NRGBA),
		errs:      make(map[string]error),
		screen:    screen,
		width:     width,
		height:    height,
	}, nil
}

// Run starts the viewer loop
func (v *ImageView) Run() error {
	defer v.screen.Fini()

	v.screen.Clear()
	v.render()

	for {
		ev := v.screen.PollEvent()

		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.width, v.height = ev.Size()
			v.screen.Sync()
			v.render()

		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}

			v.handleKeyPress(ev)
			v.render()
		}
	}
}

func (v *ImageView) handleKeyPress(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRight, tcell.KeyCtrlN:
		v.step(1)
	case tcell.KeyLeft, tcell.KeyCtrlP:
		v.step(-1)
	case tcell.KeyTab:
		v.stored = !v.stored
	case tcell.KeyHome:
		v.current = 0
	case tcell.KeyEnd:
		v.current = len(v.assets) - 1
	}

	// Vim-style navigation
	switch ev.Rune() {
	case 'l', 'n':
		v.step(1)
	case 'h', 'p':
		v.step(-1)
	}
}

func (v *ImageView) step(delta int) {
	n := len(v.assets)
	v.current = ((v.current+delta)%n + n) % n
}

// picture returns the decoded picture of the current asset, cached per mode
func (v *ImageView) picture() (*image.NRGBA, error) {
	a := &v.assets[v.current]
	key := fmt.Sprintf("%d/%t", a.ID, v.stored)
	if img, ok := v.cache[key]; ok {
		return img, nil
	}
	if err, ok := v.errs[key]; ok {
		return nil, err
	}

	var (
		img *image.NRGBA
		err error
	)
	if v.stored {
		var src image.Image
		src, err = imaging.Open(a.PreviewPath)
		if err == nil {
			img = imaging.Clone(src)
		}
	} else {
		img, err = v.generator.Render(getContext(), a.SourcePath)
	}
	if err != nil {
		v.errs[key] = err
		return nil, err
	}
	v.cache[key] = img
	return img, nil
}

func (v *ImageView) render() {
	v.screen.Clear()
	a := &v.assets[v.current]

	mode := "source"
	if v.stored {
		mode = "preview"
	}
	status := fmt.Sprintf(" %05d  %s  [%s]  %d/%d  ←/→ step  tab mode  q quit",
		a.ID, a.DisplayName, mode, v.current+1, len(v.assets))

	imgRows := v.height - 1
	if imgRows > 0 && v.width > 0 {
		img, err := v.picture()
		if err != nil {
			v.drawText(1, 1, tcell.StyleDefault.Foreground(tcell.ColorRed), err.Error())
		} else {
			v.drawImage(img, v.width, imgRows)
		}
	}

	v.drawText(0, v.height-1, tcell.StyleDefault.Reverse(true), padRight(status, v.width))
	v.screen.Show()
}

// drawImage fits img into cols x rows cells, two pixels per cell vertically
func (v *ImageView) drawImage(img *image.NRGBA, cols, rows int) {
	fit := imaging.Fit(img, cols, rows*2, imaging.Box)
	b := fit.Bounds()
	offX := (cols - b.Dx()) / 2
	offY := (rows - (b.Dy()+1)/2) / 2

	for y := 0; y < b.Dy(); y += 2 {
		for x := 0; x < b.Dx(); x++ {
			top := fit.NRGBAAt(x, y)
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B)))
			if y+1 < b.Dy() {
				bottom := fit.NRGBAAt(x, y+1)
				style = style.Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			}
			v.screen.SetContent(offX+x, offY+y/2, '▀', nil, style)
		}
	}
}

func (v *ImageView) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= v.width {
			return
		}
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
