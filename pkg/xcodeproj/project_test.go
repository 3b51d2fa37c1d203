package xcodeproj

import (
	"testing"
)

func TestCreateNativeTargetRegistersProduct(t *testing.T) {
	p := NewProject("Test")
	target, err := p.CreateNativeTarget("App", ProductTypeApplication)
	if err != nil {
		t.Fatalf("CreateNativeTarget failed: %v", err)
	}
	if p.TargetByName("App") != target {
		t.Error("target not registered under its name")
	}
	if target.ProductReference == nil {
		t.Fatal("product-producing target must get a product reference")
	}
	if target.ProductReference.Parent() != p.ProductsGroup() {
		t.Error("product reference must live under the Products group")
	}
	if got := target.ProductReference.Path(); got != "App.app" {
		t.Errorf("product path = %q, want App.app", got)
	}
}

func TestCreateTargetRejectsDuplicateName(t *testing.T) {
	p := NewProject("Test")
	if _, err := p.CreateNativeTarget("App", ProductTypeApplication); err != nil {
		t.Fatalf("first creation failed: %v", err)
	}
	if _, err := p.CreateNativeTarget("App", ProductTypeStaticLibrary); err == nil {
		t.Error("duplicate target name must be rejected")
	}
}

func TestLinkDependencyRejectsSelfDependency(t *testing.T) {
	p := NewProject("Test")
	target, _ := p.CreateNativeTarget("App", ProductTypeApplication)

	p.LinkDependency(target, target, false)
	if len(target.Dependencies) != 0 {
		t.Errorf("self-dependency must leave the dependency list unchanged, got %d edges",
			len(target.Dependencies))
	}
}

func TestLinkDependencyDeduplicatesEdgesAndProxies(t *testing.T) {
	p := NewProject("Test")
	app, _ := p.CreateNativeTarget("App", ProductTypeApplication)
	lib, _ := p.CreateNativeTarget("Lib", ProductTypeStaticLibrary)

	p.LinkDependency(app, lib, false)
	p.LinkDependency(app, lib, false)
	if len(app.Dependencies) != 1 {
		t.Fatalf("duplicate dependency request created %d edges, want 1", len(app.Dependencies))
	}

	// A second depender on the same target reuses the cached proxy.
	other, _ := p.CreateNativeTarget("Other", ProductTypeApplication)
	p.LinkDependency(other, lib, false)
	if app.Dependencies[0].Proxy != other.Dependencies[0].Proxy {
		t.Error("proxy cache must return the same proxy for the same remote target")
	}
}

func TestPrependDependencyOrdersEdgeFirst(t *testing.T) {
	p := NewProject("Test")
	app, _ := p.CreateNativeTarget("App", ProductTypeApplication)
	lib, _ := p.CreateNativeTarget("Lib", ProductTypeStaticLibrary)
	clean, _ := p.CreateLegacyTarget("_clean_", "/bin/bash", "clean", "")

	p.LinkDependency(app, lib, false)
	p.PrependDependency(app, clean)

	if len(app.Dependencies) != 2 {
		t.Fatalf("dependency count = %d, want 2", len(app.Dependencies))
	}
	if app.Dependencies[0].Proxy.RemoteTarget() != clean {
		t.Error("prepended dependency must be first")
	}
}

func TestProductNameForStaticLibrary(t *testing.T) {
	if got := ProductTypeStaticLibrary.ProductName("Core"); got != "libCore.a" {
		t.Errorf("static library product name = %q, want libCore.a", got)
	}
	if got := ProductTypeUnitTest.ProductName("CoreTests"); got != "CoreTests.xctest" {
		t.Errorf("unit test product name = %q, want CoreTests.xctest", got)
	}
}
