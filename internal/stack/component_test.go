package stack

import (
	"strings"
	"testing"

	"github.com/praxislabs/warden/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dir = t.TempDir()
	return cfg
}

func TestComponentsStartOrder(t *testing.T) {
	comps := Components(testConfig(t))

	want := []string{"node-exporter", "alertmanager", "prometheus", "grafana"}
	if len(comps) != len(want) {
		t.Fatalf("Components() returned %d components, want %d", len(comps), len(want))
	}
	for i, name := range want {
		if comps[i].Name != name {
			t.Errorf("component[%d] = %s, want %s", i, comps[i].Name, name)
		}
	}
}

func TestComponentsContainerNames(t *testing.T) {
	for _, comp := range Components(testConfig(t)) {
		want := "warden-" + comp.Name
		if comp.ContainerName != want {
			t.Errorf("%s container name = %s, want %s", comp.Name, comp.ContainerName, want)
		}
	}
}

func TestComponentsImages(t *testing.T) {
	comps := Components(testConfig(t))

	images := map[string]string{}
	for _, comp := range comps {
		images[comp.Name] = comp.Image
	}

	tests := []struct {
		name  string
		image string
	}{
		{Prometheus, "prom/prometheus:v3.5.0"},
		{Alertmanager, "prom/alertmanager:v0.28.1"},
		{Grafana, "grafana/grafana:11.6.0"},
		{NodeExporter, "prom/node-exporter:v1.9.1"},
	}
	for _, tt := range tests {
		if images[tt.name] != tt.image {
			t.Errorf("%s image = %s, want %s", tt.name, images[tt.name], tt.image)
		}
	}
}

func TestComponentsPorts(t *testing.T) {
	comps := Components(testConfig(t))

	for _, comp := range comps {
		switch comp.Name {
		case Prometheus:
			if comp.HostPort != 9090 || comp.ContainerPort != 9090 {
				t.Errorf("prometheus ports = %d->%d, want 9090->9090", comp.HostPort, comp.ContainerPort)
			}
		case Grafana:
			// Grafana publishes on 3001 because the forum app owns 3000
			// on the host, but the container still listens on 3000.
			if comp.HostPort != 3001 || comp.ContainerPort != 3000 {
				t.Errorf("grafana ports = %d->%d, want 3001->3000", comp.HostPort, comp.ContainerPort)
			}
		}
	}
}

func TestPrometheusArgs(t *testing.T) {
	comp, ok := Find(testConfig(t), Prometheus)
	if !ok {
		t.Fatal("prometheus not in catalog")
	}

	args := strings.Join(comp.Cmd, " ")
	for _, want := range []string{
		"--config.file=/etc/prometheus/prometheus.yml",
		"--storage.tsdb.retention.time=15d",
		"--web.enable-lifecycle",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("prometheus args missing %q: %s", want, args)
		}
	}
}

func TestRetentionOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stack.Prometheus.Retention = "30d"

	comp, _ := Find(cfg, Prometheus)
	if !strings.Contains(strings.Join(comp.Cmd, " "), "--storage.tsdb.retention.time=30d") {
		t.Errorf("retention override not applied: %v", comp.Cmd)
	}
}

func TestNodeExporterDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stack.NodeExporter.Disabled = true

	comp, ok := Find(cfg, NodeExporter)
	if !ok {
		t.Fatal("disabled component should stay in the catalog for down/status")
	}
	if !comp.Disabled {
		t.Error("Disabled flag not carried into the catalog")
	}
}

func TestReadyURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{Prometheus, "http://localhost:9090/-/ready"},
		{Alertmanager, "http://localhost:9093/-/ready"},
		{Grafana, "http://localhost:3001/api/health"},
		{NodeExporter, "http://localhost:9100/metrics"},
	}

	cfg := testConfig(t)
	for _, tt := range tests {
		comp, ok := Find(cfg, tt.name)
		if !ok {
			t.Fatalf("%s not in catalog", tt.name)
		}
		if got := comp.ReadyURL(); got != tt.want {
			t.Errorf("%s ReadyURL = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestFindUnknown(t *testing.T) {
	if _, ok := Find(testConfig(t), "postgres"); ok {
		t.Error("Find should not match components outside the stack")
	}
}

func TestVolumesNamed(t *testing.T) {
	comps := Components(testConfig(t))

	for _, comp := range comps {
		if comp.Name == NodeExporter {
			if len(comp.Volumes) != 0 {
				t.Errorf("node-exporter should be stateless, has volumes %v", comp.Volumes)
			}
			continue
		}
		if len(comp.Volumes) != 1 {
			t.Errorf("%s should have one data volume, has %v", comp.Name, comp.Volumes)
			continue
		}
		if !strings.HasPrefix(comp.Volumes[0].Name, "warden-") {
			t.Errorf("%s volume %s not warden-prefixed", comp.Name, comp.Volumes[0].Name)
		}
	}
}
