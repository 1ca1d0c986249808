package transcode

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"mmt/internal/config"
	"mmt/internal/language"
	"mmt/internal/logging"
	"mmt/internal/media/capabilities"
	"mmt/internal/media/resolution"
	"mmt/internal/media/stream"
	"mmt/internal/services"
	"mmt/internal/subtitles"
)

const deinterlaceFilter = "bwdif=mode=send_field:parity=auto:deint=all"

// VideoSettings holds the video encode knobs shared by every tier.
type VideoSettings struct {
	Codec       string
	Container   string
	CRF         int
	Preset      string
	Tune        string
	Deinterlace bool
}

// Settings is the planner's view of the configuration.
type Settings struct {
	Video                   VideoSettings
	Threads                 int
	Audio                   AudioSettings
	AudioDefaultLanguage    string
	Subtitles               SubtitleSettings
	SubtitlePolicy          language.Policy
	SubtitleDefaultLanguage string
	ImportExternal          bool
	AttachmentCodecs        []string
	HWAccel                 HWAccelSettings
}

// SettingsFromConfig maps the loaded configuration onto planner settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Video: VideoSettings{
			Codec:       cfg.Video.Codec,
			Container:   cfg.Video.Container,
			CRF:         cfg.Video.CRF,
			Preset:      cfg.Video.Preset,
			Tune:        cfg.Video.Tune,
			Deinterlace: cfg.Video.Deinterlace,
		},
		Threads: cfg.FFmpeg.Threads,
		Audio: AudioSettings{
			Codec:        cfg.Audio.Codec,
			MaxChannels:  cfg.Audio.MaxChannels,
			Companion:    cfg.Audio.Companion,
			IgnoreTrueHD: cfg.Audio.IgnoreTrueHD,
		},
		AudioDefaultLanguage: cfg.Audio.DefaultLanguage,
		Subtitles: SubtitleSettings{
			Codec:          cfg.Subtitles.Codec,
			Embed:          cfg.Subtitles.Embed,
			Rip:            cfg.Subtitles.Rip,
			RipCodec:       cfg.Subtitles.RipCodec,
			DeleteImported: cfg.Subtitles.DeleteImported,
		},
		SubtitlePolicy:          language.NewPolicy(cfg.Subtitles.Languages, cfg.Subtitles.Blocked, cfg.Subtitles.DefaultLanguage),
		SubtitleDefaultLanguage: cfg.Subtitles.DefaultLanguage,
		ImportExternal:          cfg.Subtitles.ImportExternal,
		AttachmentCodecs:        cfg.Subtitles.AttachmentCodecs,
		HWAccel: HWAccelSettings{
			Accels:        cfg.HWAccel.Accels,
			Decoders:      cfg.HWAccel.Decoders,
			Devices:       cfg.HWAccel.Devices,
			OutputFormats: cfg.HWAccel.OutputFormats,
		},
	}
}

// AudioPolicy builds the audio language policy from the configuration.
func AudioPolicy(cfg *config.Config) language.Policy {
	return language.NewPolicy(cfg.Audio.Languages, cfg.Audio.Blocked, cfg.Audio.DefaultLanguage)
}

// Planner builds transcode directives.
type Planner struct {
	settings     Settings
	capabilities capabilities.Querier
	classifier   Classifier
	logger       *slog.Logger

	// caps holds the first successful query; failures are retried on the
	// next build.
	capsMu sync.Mutex
	caps   *capabilities.Set

	encoderMu sync.Mutex
	encoder   string
}

// NewPlanner wires a planner. caps and classifier may be nil: no hardware
// acceleration is planned and unknown subtitle codecs are treated as text.
func NewPlanner(settings Settings, caps capabilities.Querier, classifier Classifier, logger *slog.Logger) *Planner {
	return &Planner{
		settings:     settings,
		capabilities: caps,
		classifier:   classifier,
		logger:       logging.NewComponentLogger(logger, "planner"),
	}
}

// Build assembles the directive for one tier. It fails only with
// ErrNoAudioStreams; hardware acceleration problems degrade to software.
func (p *Planner) Build(ctx context.Context, desc stream.Descriptor, tier resolution.Tier, policy language.Policy) (Directive, error) {
	logger := logging.WithContext(services.WithTier(ctx, int(tier)), p.logger)
	profile := tier.Profile()

	audioStreams := normalizeLanguages(desc.Audio, policy)
	resolved, relaxed := policy.Resolve(languagesOf(audioStreams))
	if relaxed {
		logging.Decision(logger, "audio language policy relaxed", "audio_language_relax", "allow_all",
			"no audio stream matches the allowed languages",
			logging.String("allowed", strings.Join(policy.Allowed, ",")),
		)
	}

	audio := BuildAudio(audioStreams, profile, resolved, p.settings.Audio, logger)
	if len(audio) == 0 {
		return Directive{}, services.Wrap(services.ErrNoAudioStreams, "plan", "build audio", "no audio entries for "+tier.String(), nil)
	}
	preferredAudio := resolved.Preferred()
	if preferredAudio == "" {
		preferredAudio = language.Normalize(p.settings.AudioDefaultLanguage, "")
	}
	if idx := ElectAudioDefault(audio, preferredAudio); idx >= 0 {
		logging.Decision(logger, "default audio elected", "audio_default", audio[idx].Language,
			"preferred language "+preferredAudio,
			logging.Int("stream_index", audio[idx].SourceIndex),
			logging.Int("channels", audio[idx].Channels),
		)
	}

	var external []subtitles.External
	if p.settings.ImportExternal {
		found, err := subtitles.Discover(desc.Path, p.settings.SubtitleDefaultLanguage)
		if err != nil {
			logger.Debug("external subtitle scan failed", logging.Error(err))
		}
		external = found
	}
	subPolicy := p.settings.SubtitlePolicy
	subPlan := BuildSubtitles(ctx, desc.Path, normalizeLanguages(desc.Subtitles, subPolicy), external, subPolicy, p.settings.Subtitles, p.classifier, logger)
	preferredSub := subPolicy.Preferred()
	if preferredSub == "" {
		preferredSub = language.Normalize(p.settings.SubtitleDefaultLanguage, "")
	}
	if idx := ElectSubtitleDefault(subPlan.Entries, preferredSub); idx >= 0 {
		logging.Decision(logger, "default subtitle elected", "subtitle_default", subPlan.Entries[idx].Language, "existing or preferred language")
	}
	SortSubtitles(subPlan.Entries, subPolicy)

	directive := Directive{
		Tier:            tier,
		Container:       p.container(),
		Sources:         append([]string{desc.Path}, subPlan.Imports...),
		Audio:           audio,
		Subtitles:       subPlan.Entries,
		Rips:            subPlan.Rips,
		Attachments:     p.attachments(desc.Attachments),
		PendingDeletion: subPlan.PendingDeletion,
		Duration:        desc.Duration,
		PolicyRelaxed:   relaxed,
	}
	if entry, ok := directive.DefaultAudio(); ok {
		directive.DefaultAudioLanguage = entry.Language
	}
	directive.Video = p.video(desc, tier, profile, p.Encoder(ctx))

	directive.PreOptions = []string{"-hide_banner"}
	if len(directive.Subtitles) > 0 {
		directive.PreOptions = append(directive.PreOptions, "-fix_sub_duration")
	}
	if directive.Video.Codec != codecCopy {
		hw := p.planHWAccel(ctx, logger, desc.Video.Codec, directive.Video.Codec)
		directive.HWAccel = hw.Accel
		directive.PreOptions = append(directive.PreOptions, hw.PreOptions...)
		directive.Video.Device = hw.Device
		directive.Video.DecodeDevice = hw.DecodeDevice
		if hw.Device != "" && strings.HasSuffix(directive.Video.Codec, "_vaapi") {
			directive.Video.Upload = "format=nv12|vaapi,hwupload"
		}
	}
	directive.PostOptions = p.postOptions(desc, directive)
	return directive, nil
}

func (p *Planner) container() string {
	if p.settings.Video.Container == "" {
		return "mp4"
	}
	return p.settings.Video.Container
}

func (p *Planner) video(desc stream.Descriptor, tier resolution.Tier, profile resolution.Profile, encoder string) VideoOptions {
	width := tier.Width(desc.IsWide())
	opts := VideoOptions{
		SourceIndex: desc.Video.Index,
		Codec:       encoder,
		BitrateKbps: profile.BitrateKbps,
		CRF:         p.settings.Video.CRF,
		MaxRate:     profile.MaxRate,
		BufSize:     profile.BufSize,
		Profile:     profile.CodecProfile,
		Preset:      p.settings.Video.Preset,
		Tune:        p.settings.Video.Tune,
		PixFmt:      profile.PixFmt,
		FieldOrder:  desc.Video.FieldOrder,
		Width:       width,
		Title:       tier.Title(),
	}
	if p.settings.Video.Deinterlace {
		opts.Filter = deinterlaceFilter
	}
	return opts
}

func (p *Planner) attachments(streams []stream.Stream) []AttachmentEntry {
	var out []AttachmentEntry
	for _, s := range streams {
		if !containsFold(p.settings.AttachmentCodecs, s.Codec) {
			continue
		}
		filename, mimetype := s.Tags["filename"], s.Tags["mimetype"]
		if filename == "" || mimetype == "" {
			continue
		}
		out = append(out, AttachmentEntry{SourceIndex: s.Index, Filename: filename, MimeType: mimetype})
	}
	return out
}

func (p *Planner) planHWAccel(ctx context.Context, logger *slog.Logger, sourceCodec, encoder string) HWAccelPlan {
	set, err := p.capabilitySet(ctx)
	if err != nil {
		logger.Debug("hardware acceleration unavailable", logging.Error(err))
		return HWAccelPlan{}
	}
	plan := PlanHWAccel(set, p.settings.HWAccel, sourceCodec, encoder)
	if plan.Accel != "" {
		logging.Decision(logger, "hardware acceleration selected", "hwaccel", plan.Accel, "first configured platform supported by ffmpeg",
			logging.String("decoder", plan.Decoder),
			logging.String("device", plan.Device),
		)
	}
	return plan
}

func (p *Planner) capabilitySet(ctx context.Context) (capabilities.Set, error) {
	if p.capabilities == nil {
		return capabilities.Set{}, services.Wrap(services.ErrHWAccelUnavailable, "plan", "capabilities", "no capability source", nil)
	}
	p.capsMu.Lock()
	defer p.capsMu.Unlock()
	if p.caps == nil {
		set, err := p.capabilities.Query(ctx)
		if err != nil {
			return capabilities.Set{}, err
		}
		p.caps = &set
	}
	set := *p.caps
	if len(set.HWAccels) == 0 && len(set.Encoders) == 0 {
		return set, services.Wrap(services.ErrHWAccelUnavailable, "plan", "capabilities", "empty capability set", nil)
	}
	return set, nil
}

// capabilitiesKnown reports whether the capability answer is settled.
func (p *Planner) capabilitiesKnown() bool {
	if p.capabilities == nil {
		return true
	}
	p.capsMu.Lock()
	defer p.capsMu.Unlock()
	return p.caps != nil
}

// Encoder returns the video encoder to use. A configured hardware encoder
// the ffmpeg build lacks is swapped for the software encoder of the same
// family. The choice is kept once the capability query has succeeded.
func (p *Planner) Encoder(ctx context.Context) string {
	p.encoderMu.Lock()
	defer p.encoderMu.Unlock()
	if p.encoder != "" {
		return p.encoder
	}
	encoder := p.resolveEncoder(ctx)
	if !IsHardwareEncoder(VideoEncoder(p.settings.Video.Codec)) || p.capabilitiesKnown() {
		p.encoder = encoder
	}
	return encoder
}

func (p *Planner) resolveEncoder(ctx context.Context) string {
	encoder := VideoEncoder(p.settings.Video.Codec)
	if !IsHardwareEncoder(encoder) {
		return encoder
	}
	set, err := p.capabilitySet(ctx)
	if err == nil && set.HasEncoder(encoder) {
		return encoder
	}
	fallback := "libx264"
	if isHEVC(encoder) {
		fallback = "libx265"
	}
	if err == nil {
		err = services.Wrap(services.ErrHWAccelUnavailable, "plan", "resolve encoder", encoder+" not in ffmpeg build", nil)
	}
	logging.WarnWithContext(p.logger, "hardware encoder unavailable", "hwaccel_fallback",
		logging.String("encoder", encoder),
		logging.String("fallback", fallback),
		logging.String(logging.FieldErrorHint, "check hwaccel configuration and ffmpeg build"),
		logging.String(logging.FieldImpact, "encoding falls back to software"),
		logging.Error(err),
	)
	return fallback
}

func (p *Planner) postOptions(desc stream.Descriptor, d Directive) []string {
	threads := p.settings.Threads
	if threads <= 0 {
		threads = 1
	}
	opts := []string{
		"-threads", strconv.Itoa(threads),
		"-metadata:g", "encoding_tool=MMT",
		"-vsync", "1",
		"-g", "60",
		"-sc_threshold", "0",
		"-movflags", "faststart",
	}
	if isMP4Family(d.Container) && d.copiesCodec(desc, codecTrueHD) {
		opts = append(opts, "-strict", "experimental")
	}
	if isMP4Family(d.Container) && isHEVC(d.Video.Codec) {
		opts = append(opts, "-tag:v", "hvc1")
	}
	return opts
}

func isMP4Family(container string) bool {
	switch container {
	case "mp4", "m4v", "mov":
		return true
	}
	return false
}

func normalizeLanguages(streams []stream.Stream, policy language.Policy) []stream.Stream {
	out := make([]stream.Stream, len(streams))
	for i, s := range streams {
		s.Language = policy.Normalize(s.Language)
		out[i] = s
	}
	return out
}

func languagesOf(streams []stream.Stream) []string {
	langs := make([]string, 0, len(streams))
	for _, s := range streams {
		langs = append(langs, s.Language)
	}
	return langs
}
