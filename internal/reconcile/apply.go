package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/avsessiond/internal/audiosvc"
	"github.com/jmylchreest/avsessiond/internal/model"
)

// apply pushes cfg to the service. The order is fixed: category, mode and
// options go in one call; format preferences next; the preferred input
// before its data source; activation last, since activation can lock format
// changes. The first failure stops the sequence and nothing is rolled back.
func (e *Engine) apply(cfg model.Config) error {
	if err := e.svc.ApplyCategory(cfg.Category, cfg.Mode, cfg.Options); err != nil {
		return &model.ServiceError{Step: model.StepCategory, Err: err}
	}

	if cfg.SampleRate > 0 {
		if err := e.svc.SetPreferredSampleRate(cfg.SampleRate); err != nil {
			return &model.ServiceError{Step: model.StepSampleRate, Err: err}
		}
	}

	if cfg.IOBufferDuration > 0 {
		if err := e.svc.SetPreferredIOBufferDuration(cfg.IOBufferDuration); err != nil {
			return &model.ServiceError{Step: model.StepIOBufferDuration, Err: err}
		}
	}

	if cfg.PreferredInput != "" {
		if err := e.selectPreferredInput(cfg.PreferredInput); err != nil {
			return err
		}
	}

	if cfg.Stereo != nil {
		if err := e.selectStereoSource(*cfg.Stereo); err != nil {
			return err
		}
	}

	if cfg.InputOrientation != nil {
		if err := e.svc.SetPreferredInputOrientation(*cfg.InputOrientation); err != nil {
			return &model.ServiceError{Step: model.StepInputOrientation, Err: err}
		}
	}

	if err := e.svc.SetActive(cfg.Active); err != nil {
		return &model.ServiceError{Step: model.StepActive, Err: err}
	}
	return nil
}

// selectPreferredInput picks the first available input of the given type.
func (e *Engine) selectPreferredInput(portType model.PortType) error {
	inputs, err := e.svc.AvailableInputs()
	if err != nil {
		return &model.ServiceError{Step: model.StepPreferredInput, Err: err}
	}

	for _, in := range inputs {
		if in.PortType() != portType {
			continue
		}
		if err := e.svc.SetPreferredInput(in); err != nil {
			return &model.ServiceError{Step: model.StepPreferredInput, Err: err}
		}
		return nil
	}
	return fmt.Errorf("%w: no %s among %d inputs", model.ErrDeviceNotFound, portType, len(inputs))
}

// selectStereoSource sets the polar pattern on the named data source of the
// preferred input, then makes that data source preferred.
func (e *Engine) selectStereoSource(sel model.StereoSelection) error {
	input := e.svc.PreferredInput()
	if input == nil {
		return fmt.Errorf("%w: %q (no preferred input)", model.ErrDataSourceNotFound, sel.DataSourceName)
	}

	var source audiosvc.DataSource
	for _, ds := range input.DataSources() {
		if strings.EqualFold(ds.Name(), sel.DataSourceName) {
			source = ds
			break
		}
	}
	if source == nil {
		return fmt.Errorf("%w: %q on %s", model.ErrDataSourceNotFound, sel.DataSourceName, input.Name())
	}

	if !slices.Contains(source.SupportedPolarPatterns(), sel.Pattern) {
		return fmt.Errorf("%w: %s on %q", model.ErrUnsupportedPattern, sel.Pattern, source.Name())
	}

	if err := source.SetPreferredPolarPattern(sel.Pattern); err != nil {
		return &model.ServiceError{Step: model.StepDataSource, Err: err}
	}
	if err := input.SetPreferredDataSource(source); err != nil {
		return &model.ServiceError{Step: model.StepDataSource, Err: err}
	}
	return nil
}
