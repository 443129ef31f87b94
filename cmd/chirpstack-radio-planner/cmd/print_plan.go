package cmd

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-radio-planner/internal/band"
	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

const planTemplate = `region:           {{ .Region }} ({{ lorawanBand .Region }})
role:             {{ .Role }}
preamble symbols: {{ .PreambleSymbols }}
rx2:              DR{{ .RX2DataRate }} @ {{ mhz .RX2Frequency }} MHz
max tx power:     {{ .MaxTXPower }} dBm
{{- if .ReceptionPaths }}
reception paths:  {{ .ReceptionPaths }}
reception freqs: {{ range .ReceptionFrequencies }} {{ mhz . }}{{ end }} MHz
{{- end }}

channels:
{{- range $i, $c := .Channels }}
  {{ $i }}: {{ mhz $c.Frequency }} MHz, DR{{ $c.MinDR }} - DR{{ $c.MaxDR }}
{{- end }}

sub-bands:
{{- range $i, $s := .SubBands }}
  {{ $i }}: {{ mhz $s.FrequencyLow }} - {{ mhz $s.FrequencyHigh }} MHz, duty-cycle {{ percent $s.DutyCycle }}, max {{ $s.MaxTXPower }} dBm
{{- end }}

data-rates:
{{- range $i, $dr := .DataRates }}
  DR{{ $i }}: {{ if $dr.Reserved }}reserved{{ else }}SF{{ $dr.SpreadFactor }} / {{ khz $dr.Bandwidth }} kHz, max payload {{ $dr.MaxPayloadSize }} bytes{{ end }}
{{- end }}

tx-power:
{{- range $i, $p := .TXPower }}
  {{ $i }}: {{ $p }} dBm
{{- end }}

reply data-rates (uplink DR x RX1 DR offset):
{{- range $i, $row := .ReplyDataRates }}
  DR{{ $i }}:{{ range $row }} {{ . }}{{ end }}
{{- end }}
`

var planTemplateFuncs = template.FuncMap{
	"lorawanBand": func(r band.Region) (string, error) {
		name, err := band.LoRaWANBandName(r)
		return string(name), err
	},
	"mhz": func(hz uint32) string {
		return fmt.Sprintf("%.3f", float64(hz)/1000000)
	},
	"khz": func(hz int) int {
		return hz / 1000
	},
	"percent": func(dc float64) string {
		return fmt.Sprintf("%g%%", dc*100)
	},
}

var (
	printPlanRegion string
	printPlanRole   string
)

var printPlanCmd = &cobra.Command{
	Use:     "print-plan",
	Short:   "Print the channel-plan of a region and role",
	Example: `chirpstack-radio-planner print-plan --region AU915 --role gateway`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := printPlanRegion
		if name == "" {
			name = config.C.Band.Name
		}

		region, err := band.ParseRegion(name)
		if err != nil {
			return err
		}

		role, err := band.ParseRole(printPlanRole)
		if err != nil {
			return err
		}

		return printPlan(os.Stdout, region, role)
	},
}

func printPlan(w io.Writer, region band.Region, role band.Role) error {
	p, err := band.BuildChannelPlan(region, role)
	if err != nil {
		return errors.Wrap(err, "build channel-plan error")
	}

	t := template.Must(template.New("plan").Funcs(planTemplateFuncs).Parse(planTemplate))
	if err := t.Execute(w, p); err != nil {
		return errors.Wrap(err, "execute plan template error")
	}
	return nil
}

func init() {
	printPlanCmd.Flags().StringVar(&printPlanRegion, "region", "", "region name (defaults to band.name of the configuration)")
	printPlanCmd.Flags().StringVar(&printPlanRole, "role", "end_device", "role (end_device or gateway)")
}
